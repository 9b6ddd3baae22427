package configs

import (
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	SMS       SMSConfig
	Email     EmailConfig
	Ledger    LedgerConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// SMSConfig holds the bulk SMS gateway configuration
type SMSConfig struct {
	Enabled     bool
	BaseURL     string
	Header      string
	EntityID    string
	AccessToken string
	Timeout     time.Duration
}

// EmailConfig holds email configuration
type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	CompanyName  string
}

// LedgerConfig holds collection and account numbering configuration
type LedgerConfig struct {
	// StrictCommission fails a collection when the referrer has no wallet
	StrictCommission bool
	LoanPrefix       string
	RDPrefix         string
	FDPrefix         string
}

// SchedulerConfig holds background sweep configuration
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, err
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, err
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, err
	}

	smsTimeout, err := time.ParseDuration(getEnv("SMS_TIMEOUT", "10s"))
	if err != nil {
		return nil, err
	}

	sweepInterval, err := time.ParseDuration(getEnv("SCHEDULER_INTERVAL", "1h"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port: port,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "microfinance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "super_secret_key"),
		},
		SMS: SMSConfig{
			Enabled:     getEnvBool("SMS_ENABLED", false),
			BaseURL:     getEnv("SMS_BASE_URL", "https://bulksms.bsnl.in:5010/api"),
			Header:      getEnv("SMS_HEADER", ""),
			EntityID:    getEnv("SMS_ENTITY_ID", ""),
			AccessToken: getEnv("SMS_ACCESS_TOKEN", ""),
			Timeout:     smsTimeout,
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
			SMTPHost:     getEnv("SMTP_HOST", "smtp.example.com"),
			SMTPPort:     smtpPort,
			SMTPUser:     getEnv("SMTP_USER", "user"),
			SMTPPassword: getEnv("SMTP_PASSWORD", "password"),
			SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@microfinance.local"),
			CompanyName:  getEnv("COMPANY_NAME", "Microfinance"),
		},
		Ledger: LedgerConfig{
			StrictCommission: getEnvBool("LEDGER_STRICT_COMMISSION", false),
			LoanPrefix:       getEnv("LOAN_PREFIX", "LN"),
			RDPrefix:         getEnv("RD_PREFIX", "RD"),
			FDPrefix:         getEnv("FD_PREFIX", "FD"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvBool("SCHEDULER_ENABLED", true),
			Interval: sweepInterval,
		},
	}, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}
