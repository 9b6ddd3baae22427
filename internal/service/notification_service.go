package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"microfinance-service/configs"
	"microfinance-service/internal/repository"
)

// SMS content templates registered with the gateway
const (
	TemplateWalletDebit             = "1407169904241372254"
	TemplateWalletCredit            = "1407169904219354547"
	TemplateLoanRepayment           = "1407169973439056064"
	TemplateDepositRepayment        = "1407169904372908628"
	TemplateFixedDepositApproved    = "1407169904753505516"
	TemplateLoanApproved            = "1407169904496784642"
	TemplateRecurringDepositApprove = "1407169904310900942"
	TemplateRecurringDepositMature  = "1407169904442133038"
	TemplateRecurringDepositClosed  = "1407169904414232750"
	TemplateFixedDepositClosed      = "1407169904781341975"
	TemplateFixedDepositMature      = "1407169904805690181"
	TemplateLoanClosed              = "1407169904609701891"
	TemplateWithdrawalConfirmed     = "1407169985751037944"
	TemplateRejectedReason          = "1407169979808096410"
	TemplateUserCreated             = "1407169903961175810"
)

// TemplateValue fills one placeholder of an SMS template
type TemplateValue struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type smsRequest struct {
	Header            string          `json:"Header"`
	Target            string          `json:"Target"`
	IsUnicode         string          `json:"Is_Unicode"`
	IsFlash           string          `json:"Is_Flash"`
	MessageType       string          `json:"Message_Type"`
	EntityID          string          `json:"Entity_Id"`
	ContentTemplateID string          `json:"Content_Template_Id"`
	ConsentTemplateID *string         `json:"Consent_Template_Id"`
	Values            []TemplateValue `json:"Template_Keys_and_Values"`
}

// NotificationSvc is an implementation of the service.NotificationService interface
type NotificationSvc struct {
	logger *logrus.Logger
	config *configs.Config
	client *http.Client
}

// NewNotificationService creates a new NotificationSvc
func NewNotificationService(deps Dependencies) *NotificationSvc {
	return &NotificationSvc{
		logger: deps.Logger,
		config: deps.Config,
		client: &http.Client{Timeout: deps.Config.SMS.Timeout},
	}
}

// SendSMS posts a templated message to the bulk SMS gateway
func (s *NotificationSvc) SendSMS(ctx context.Context, phone, templateID string, values []TemplateValue) error {
	if !s.config.SMS.Enabled {
		s.logger.Debugf("SMS disabled, skipping template %s to %s", templateID, phone)
		return nil
	}

	if phone == "" {
		return errors.New("no phone number")
	}

	payload, err := json.Marshal(smsRequest{
		Header:            s.config.SMS.Header,
		Target:            phone,
		IsUnicode:         "0",
		IsFlash:           "0",
		MessageType:       "SI",
		EntityID:          s.config.SMS.EntityID,
		ContentTemplateID: templateID,
		Values:            values,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.SMS.BaseURL+"/Send_SMS", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.SMS.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	return nil
}

// SendEmail sends an HTML email through SMTP
func (s *NotificationSvc) SendEmail(ctx context.Context, to, subject, body string) error {
	if !s.config.Email.Enabled || to == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.Email.SenderEmail, s.config.Email.CompanyName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(
		s.config.Email.SMTPHost,
		s.config.Email.SMTPPort,
		s.config.Email.SMTPUser,
		s.config.Email.SMTPPassword,
	)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// notice is one customer message queued by a ledger operation
type notice struct {
	userID   int
	template string
	subject  string
	values   []TemplateValue
}

// deliver sends notices in the background once the ledger work has committed.
// Delivery failures are logged and dropped.
func deliver(repos *repository.Repository, notifier NotificationService, logger *logrus.Logger, notices ...notice) {
	if len(notices) == 0 {
		return
	}

	go func() {
		ctx := context.Background()
		for _, n := range notices {
			user, err := repos.User.GetByID(ctx, n.userID)
			if err != nil {
				logger.Warnf("Failed to load user %d for notification: %v", n.userID, err)
				continue
			}

			values := append([]TemplateValue{{Key: "customer", Value: user.Name}}, n.values...)
			if err := notifier.SendSMS(ctx, user.Phone, n.template, values); err != nil {
				logger.Warnf("Failed to send sms %s to user %d: %v", n.template, user.ID, err)
			}

			if user.Email == "" || n.subject == "" {
				continue
			}
			if err := notifier.SendEmail(ctx, user.Email, n.subject, renderNotice(n.subject, values)); err != nil {
				logger.Warnf("Failed to send email to user %d: %v", user.ID, err)
			}
		}
	}()
}

func renderNotice(subject string, values []TemplateValue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(subject))
	b.WriteString(`<table style="border-collapse: collapse; width: 100%;">` + "\n")
	for _, v := range values {
		fmt.Fprintf(&b, `	<tr><td style="padding: 8px; border: 1px solid #ddd;"><strong>%s</strong></td><td style="padding: 8px; border: 1px solid #ddd;">%s</td></tr>`+"\n",
			html.EscapeString(v.Key), html.EscapeString(v.Value))
	}
	b.WriteString("</table>\n")
	return b.String()
}
