package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every repository can run
// standalone or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		phone VARCHAR(16) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL DEFAULT '',
		role VARCHAR(16) NOT NULL,
		password_hash VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users(id),
		balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id SERIAL PRIMARY KEY,
		wallet_id INTEGER NOT NULL REFERENCES wallets(id),
		amount NUMERIC(14,2) NOT NULL,
		fee NUMERIC(14,2) NOT NULL DEFAULT 0,
		balance NUMERIC(14,2) NOT NULL,
		txn_type VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		reference UUID NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id SERIAL PRIMARY KEY,
		wallet_id INTEGER NOT NULL REFERENCES wallets(id),
		transaction_id INTEGER NOT NULL REFERENCES transactions(id),
		amount NUMERIC(14,2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		plan_id INTEGER NOT NULL,
		ref_id INTEGER REFERENCES users(id),
		amount NUMERIC(14,2) NOT NULL,
		total_paid NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_payable NUMERIC(14,2) NOT NULL DEFAULT 0,
		emi_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		interest_rate NUMERIC(10,4) NOT NULL DEFAULT 0,
		interest_frequency VARCHAR(16) NOT NULL,
		emi_frequency VARCHAR(16) NOT NULL,
		installments INTEGER NOT NULL,
		commission_rate NUMERIC(10,4) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		remark TEXT NOT NULL DEFAULT '',
		loan_date TIMESTAMPTZ,
		maturity_date TIMESTAMPTZ,
		last_repayment TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		plan_id INTEGER NOT NULL,
		ref_id INTEGER REFERENCES users(id),
		kind VARCHAR(4) NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		total_paid NUMERIC(14,2) NOT NULL DEFAULT 0,
		payout_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		interest_rate NUMERIC(10,4) NOT NULL DEFAULT 0,
		payment_frequency VARCHAR(16) NOT NULL,
		tenure INTEGER NOT NULL,
		commission_rate NUMERIC(10,4) NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		remark TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ,
		maturity_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS due_records (
		id SERIAL PRIMARY KEY,
		plan_id INTEGER NOT NULL,
		category VARCHAR(10) NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		emi_amount NUMERIC(14,2) NOT NULL,
		paid_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		late_fee NUMERIC(14,2) NOT NULL DEFAULT 0,
		paid_fee NUMERIC(14,2) NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL,
		pay_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (paid_amount >= 0 AND paid_amount <= emi_amount),
		CHECK (paid_fee >= 0 AND paid_fee <= late_fee)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_due_records_plan ON due_records (plan_id, category, due_date)`,
	`CREATE TABLE IF NOT EXISTS emi_records (
		id SERIAL PRIMARY KEY,
		plan_id INTEGER NOT NULL,
		category VARCHAR(10) NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		late_fee NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_paid NUMERIC(14,2) NOT NULL,
		pay_date TIMESTAMPTZ NOT NULL,
		status VARCHAR(16) NOT NULL,
		collected_by INTEGER NOT NULL REFERENCES users(id),
		hold_by INTEGER REFERENCES users(id),
		remark TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emi_records_plan ON emi_records (plan_id, category)`,
	`CREATE TABLE IF NOT EXISTS due_emi_configs (
		id SERIAL PRIMARY KEY,
		due_id INTEGER NOT NULL REFERENCES due_records(id),
		emi_id INTEGER NOT NULL REFERENCES emi_records(id),
		amount NUMERIC(14,2) NOT NULL,
		paid_amount NUMERIC(14,2) NOT NULL,
		late_fee NUMERIC(14,2) NOT NULL,
		paid_fee NUMERIC(14,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (due_id, emi_id)
	)`,
}

// Migrate creates the ledger tables if they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
