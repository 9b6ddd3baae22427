package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
	"microfinance-service/pkg/crypto"
)

// UserSvc is an implementation of the service.UserService interface
type UserSvc struct {
	repos    *repository.Repository
	logger   *logrus.Logger
	config   *configs.Config
	notifier NotificationService
	hasher   *crypto.PasswordHasher
}

// NewUserService creates a new UserSvc
func NewUserService(deps Dependencies) *UserSvc {
	if deps.Notifier == nil {
		deps.Notifier = NewNotificationService(deps)
	}

	return &UserSvc{
		repos:    deps.Repos,
		logger:   deps.Logger,
		config:   deps.Config,
		notifier: deps.Notifier,
		hasher:   crypto.NewPasswordHasher(),
	}
}

// Create onboards a user together with their wallet
func (s *UserSvc) Create(ctx context.Context, userCreate *models.UserCreate) (*models.User, error) {
	if err := userCreate.ValidateUserCreate(); err != nil {
		return nil, fmt.Errorf("invalid user data: %w", err)
	}

	// Check if phone already exists
	_, err := s.repos.User.GetByPhone(ctx, userCreate.Phone)
	if err == nil {
		return nil, fmt.Errorf("phone %s: %w", userCreate.Phone, models.ErrAlreadyExists)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	user := userCreate.ToUser()

	if userCreate.Password != "" {
		hashedPassword, err := s.hasher.HashPassword(userCreate.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PassHash = hashedPassword
	}

	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		id, err := tx.User.Create(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		user.ID = id

		if _, err := tx.Wallet.Create(ctx, models.NewWallet(id)); err != nil {
			return fmt.Errorf("failed to create wallet: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("User created: %d (%s)", user.ID, user.Role)

	deliver(s.repos, s.notifier, s.logger, notice{
		userID:   user.ID,
		template: TemplateUserCreated,
		subject:  fmt.Sprintf("Welcome to %s", s.config.Email.CompanyName),
		values:   []TemplateValue{{Key: "phone", Value: user.Phone}},
	})

	user.PassHash = ""
	return user, nil
}

// GetByID gets a user by ID
func (s *UserSvc) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.repos.User.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.PassHash = ""

	return user, nil
}
