package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the cash position of one user
type Wallet struct {
	ID        int             `json:"id" db:"id"`
	UserID    int             `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// NewWallet returns an empty wallet for userID
func NewWallet(userID int) *Wallet {
	return &Wallet{UserID: userID, Balance: decimal.Zero}
}

// Setting keys read by the wallet flows
const (
	SettingMinWithdrawAmount = "min_withdraw_amount"
	SettingMaxWithdrawAmount = "max_withdraw_amount"
)

// Setting is a configurable key/value pair
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;column:key"`
	Value     string    `json:"value" gorm:"column:value"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// AgentAssignment links an agent to a plan they may collect on
type AgentAssignment struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	AgentID   int       `json:"agent_id" gorm:"uniqueIndex:idx_agent_plan"`
	PlanID    int       `json:"plan_id" gorm:"uniqueIndex:idx_agent_plan"`
	Category  Category  `json:"category" gorm:"uniqueIndex:idx_agent_plan"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignRequest represents an agent assignment request
type AssignRequest struct {
	AgentID int `json:"agent_id"`
}

// ReferrerRequest represents a change of referrer on a plan
type ReferrerRequest struct {
	ReferrerID *int `json:"ref_id"`
}

// TableName sets the gorm table of settings
func (Setting) TableName() string {
	return "settings"
}

// TableName sets the gorm table of agent assignments
func (AgentAssignment) TableName() string {
	return "agent_assignments"
}
