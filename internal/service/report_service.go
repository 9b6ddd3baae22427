package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"microfinance-service/configs"
	"microfinance-service/internal/models"
	"microfinance-service/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	collectionSheet = "Collections"
)

// ReportSvc is an implementation of the service.ReportService interface
type ReportSvc struct {
	repos  *repository.Repository
	logger *logrus.Logger
	config *configs.Config
	now    func() time.Time
}

// NewReportService creates a new ReportSvc
func NewReportService(deps Dependencies) *ReportSvc {
	return &ReportSvc{
		repos:  deps.Repos,
		logger: deps.Logger,
		config: deps.Config,
		now:    deps.now,
	}
}

// Pendings lists per collector what has been collected but not yet handed over
func (s *ReportSvc) Pendings(ctx context.Context, limit, offset int) (*models.PendingReport, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	collectors, err := s.repos.Emi.PendingByCollector(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending collections: %w", err)
	}

	total, err := s.repos.Emi.PendingTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to total pending collections: %w", err)
	}

	return &models.PendingReport{Collectors: collectors, Total: total}, nil
}

// Summary totals collections by category between from and to
func (s *ReportSvc) Summary(ctx context.Context, from, to time.Time) (*models.CollectionSummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range ends before it starts: %w", models.ErrInvalidState)
	}

	categories, err := s.repos.Emi.SummaryByCategory(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := &models.CollectionSummary{
		From:       from,
		To:         to,
		Categories: categories,
		Amount:     decimal.Zero,
		LateFee:    decimal.Zero,
	}
	for _, c := range categories {
		summary.Amount = summary.Amount.Add(c.Amount)
		summary.LateFee = summary.LateFee.Add(c.LateFee)
	}

	return summary, nil
}

// ExportCollectionsXLSX writes the collection events between from and to as a
// spreadsheet.
func (s *ReportSvc) ExportCollectionsXLSX(ctx context.Context, from, to time.Time, w io.Writer) error {
	records, err := s.repos.Emi.GetByDateRange(ctx, from, to)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", collectionSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"ID", "Account", "Category", "Pay date", "Amount", "Late fee", "Total paid", "Status", "Collected by", "Remark"}
	if err := f.SetSheetRow(collectionSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	amount := decimal.Zero
	fee := decimal.Zero

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		row := []interface{}{
			r.ID,
			s.accountFor(r),
			string(r.Category),
			r.PayDate.Format("2006-01-02"),
			r.Amount.InexactFloat64(),
			r.LateFee.InexactFloat64(),
			r.TotalPaid.InexactFloat64(),
			string(r.Status),
			r.CollectedBy,
			r.Remark,
		}
		if err := f.SetSheetRow(collectionSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}

		amount = amount.Add(r.Amount)
		fee = fee.Add(r.LateFee)
	}

	cell, err := excelize.CoordinatesToCellName(4, len(records)+2)
	if err != nil {
		return err
	}
	totals := []interface{}{"Total", amount.InexactFloat64(), fee.InexactFloat64()}
	if err := f.SetSheetRow(collectionSheet, cell, &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Infof("Exported %d collections from %s to %s", len(records), from.Format("2006-01-02"), to.Format("2006-01-02"))

	return nil
}

func (s *ReportSvc) accountFor(r *models.EmiRecord) string {
	if r.Category == models.CategoryLoan {
		return formatAccount(s.config.Ledger.LoanPrefix, r.PlanID)
	}
	return formatAccount(s.config.Ledger.RDPrefix, r.PlanID)
}

// StatementXML writes every collection event of a plan, with what each event
// contributed to each installment.
func (s *ReportSvc) StatementXML(ctx context.Context, planID int, category models.Category, w io.Writer) error {
	var (
		account string
		status  models.PlanStatus
		paid    decimal.Decimal
	)

	switch category {
	case models.CategoryLoan:
		loan, err := s.repos.Loan.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		account = formatAccount(s.config.Ledger.LoanPrefix, loan.ID)
		status, paid = loan.Status, loan.TotalPaid
	case models.CategoryDeposit:
		deposit, err := s.repos.Deposit.GetByID(ctx, planID)
		if err != nil {
			return err
		}
		prefix := s.config.Ledger.RDPrefix
		if deposit.Kind == models.DepositKindFixed {
			prefix = s.config.Ledger.FDPrefix
		}
		account = formatAccount(prefix, deposit.ID)
		status, paid = deposit.Status, deposit.TotalPaid
	default:
		return fmt.Errorf("unknown category %q", category)
	}

	records, err := s.repos.Emi.GetByPlan(ctx, planID, category)
	if err != nil {
		return err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("statement")
	root.CreateAttr("account", account)
	root.CreateAttr("category", string(category))
	root.CreateAttr("status", string(status))
	root.CreateAttr("total_paid", paid.StringFixed(2))
	root.CreateAttr("generated", s.now().Format(time.RFC3339))

	for _, r := range records {
		repayment := root.CreateElement("repayment")
		repayment.CreateAttr("id", strconv.Itoa(r.ID))
		repayment.CreateAttr("status", string(r.Status))
		repayment.CreateElement("pay_date").SetText(r.PayDate.Format("2006-01-02"))
		repayment.CreateElement("amount").SetText(r.Amount.StringFixed(2))
		repayment.CreateElement("late_fee").SetText(r.LateFee.StringFixed(2))
		repayment.CreateElement("total_paid").SetText(r.TotalPaid.StringFixed(2))

		allocations, err := s.repos.Emi.GetAllocations(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, a := range allocations {
			el := repayment.CreateElement("allocation")
			el.CreateAttr("due_id", strconv.Itoa(a.DueID))
			el.CreateAttr("amount", a.Amount.StringFixed(2))
			el.CreateAttr("late_fee", a.LateFee.StringFixed(2))
			el.CreateAttr("paid_amount", a.PaidAmount.StringFixed(2))
			el.CreateAttr("paid_fee", a.PaidFee.StringFixed(2))
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}

	return nil
}
