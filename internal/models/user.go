package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Role defines the role of a user
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleAgent    Role = "Agent"
	RoleCustomer Role = "customer"
)

// Permission names a capability that can be granted to staff
type Permission string

const (
	PermUserManagement       Permission = "user_management"
	PermLoanApproval         Permission = "loan_approval"
	PermLoanSettlement       Permission = "loan_settlement"
	PermDepositApproval      Permission = "deposit_approval"
	PermDepositMaturity      Permission = "deposit_maturity"
	PermRepaymentCollection  Permission = "repayment_collection"
	PermRepaymentCorrection  Permission = "repayment_correction"
	PermWithdrawalManagement Permission = "withdrawal_management"
	PermAgentCollection      Permission = "agent_collection"
	PermAgentAssignment      Permission = "agent_assignment"
	PermViewUserDetails      Permission = "view_user_details"
)

// User represents a user in the system
type User struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email,omitempty" db:"email"`
	Role      Role      `json:"role" db:"role"`
	PassHash  string    `json:"-" db:"password_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserCreate represents onboarding data for a new user
type UserCreate struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
	Password string `json:"password,omitempty"`
}

// Actor is the authenticated caller of a core operation. It is built once at the
// HTTP edge from verified token claims and passed explicitly into services.
type Actor struct {
	UserID      int
	Role        Role
	Permissions []Permission
}

// IsTrustedCollector reports whether money collected by the actor is considered
// received by the office immediately.
func (a Actor) IsTrustedCollector() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// Can reports whether the actor holds every given permission. Admins hold all.
func (a Actor) Can(perms ...Permission) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, p := range perms {
		found := false
		for _, granted := range a.Permissions {
			if granted == p {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,13}$`)

// ValidateUserCreate validates onboarding data
func (u *UserCreate) ValidateUserCreate() error {
	u.Name = strings.TrimSpace(u.Name)
	u.Phone = strings.TrimSpace(u.Phone)
	u.Email = strings.TrimSpace(u.Email)

	if len(u.Name) < 2 || len(u.Name) > 100 {
		return errors.New("name must be between 2 and 100 characters")
	}

	if !phonePattern.MatchString(u.Phone) {
		return errors.New("invalid phone number")
	}

	switch u.Role {
	case RoleAdmin, RoleManager, RoleAgent, RoleCustomer:
	case "":
		u.Role = RoleCustomer
	default:
		return errors.New("invalid role")
	}

	if u.Role != RoleCustomer && len(u.Password) < 8 {
		return errors.New("staff password must be at least 8 characters")
	}

	return nil
}

// ToUser converts UserCreate to User
func (u *UserCreate) ToUser() *User {
	return &User{
		Name:  u.Name,
		Phone: u.Phone,
		Email: u.Email,
		Role:  u.Role,
	}
}

// DefaultPermissions returns the permissions a role carries when its token lists none
func DefaultPermissions(role Role) []Permission {
	switch role {
	case RoleAdmin:
		return []Permission{
			PermUserManagement, PermLoanApproval, PermLoanSettlement, PermDepositApproval,
			PermDepositMaturity, PermRepaymentCollection, PermRepaymentCorrection,
			PermWithdrawalManagement, PermAgentCollection, PermAgentAssignment, PermViewUserDetails,
		}
	case RoleManager:
		return []Permission{
			PermLoanApproval, PermLoanSettlement, PermDepositApproval, PermDepositMaturity,
			PermRepaymentCollection, PermRepaymentCorrection, PermWithdrawalManagement,
			PermAgentCollection, PermAgentAssignment, PermViewUserDetails,
		}
	case RoleAgent:
		return []Permission{PermRepaymentCollection, PermRepaymentCorrection, PermViewUserDetails}
	default:
		return nil
	}
}
