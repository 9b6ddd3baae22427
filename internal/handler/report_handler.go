package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"microfinance-service/internal/models"
	"microfinance-service/internal/service"
	"microfinance-service/pkg/utils"
)

const (
	dateLayout = "2006-01-02"
	xlsxType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHandler handles reporting and export requests
type ReportHandler struct {
	reportService service.ReportService
	logger        *logrus.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService service.ReportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// Pendings handles listing what each collector still holds
func (h *ReportHandler) Pendings(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	report, err := h.reportService.Pendings(r.Context(), limit, offset)
	if err != nil {
		respondError(w, h.logger, "get pending collections", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "pending collections retrieved successfully", report)
}

// Summary handles totals of collections by category
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}

	summary, err := h.reportService.Summary(r.Context(), from, to)
	if err != nil {
		respondError(w, h.logger, "summarize collections", err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, "collection summary retrieved successfully", summary)
}

// ExportXLSX handles downloading collections as a spreadsheet
func (h *ReportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}

	// buffered so a failed export can still answer with an error envelope
	var buf bytes.Buffer
	if err := h.reportService.ExportCollectionsXLSX(r.Context(), from, to, &buf); err != nil {
		respondError(w, h.logger, "export collections", err)
		return
	}

	name := fmt.Sprintf("collections_%s_%s.xlsx", from.Format(dateLayout), to.AddDate(0, 0, -1).Format(dateLayout))
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// LoanStatement handles the XML statement of a loan
func (h *ReportHandler) LoanStatement(w http.ResponseWriter, r *http.Request) {
	h.statement(w, r, models.CategoryLoan)
}

// DepositStatement handles the XML statement of a deposit
func (h *ReportHandler) DepositStatement(w http.ResponseWriter, r *http.Request) {
	h.statement(w, r, models.CategoryDeposit)
}

func (h *ReportHandler) statement(w http.ResponseWriter, r *http.Request, category models.Category) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reportService.StatementXML(r.Context(), id, category, &buf); err != nil {
		respondError(w, h.logger, "build statement", err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// dateRange reads ?from= and ?to= as whole days. to is inclusive and defaults
// to today; from defaults to the first of to's month.
func dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()

	to := models.StartOfDay(time.Now().UTC())
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}

	from := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}

	return from, to.AddDate(0, 0, 1), true
}
