package attendance

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/zyadwael2009/gym/internal/api"
	"github.com/zyadwael2009/gym/internal/auth"
	"github.com/zyadwael2009/gym/internal/customer"
	"github.com/zyadwael2009/gym/internal/logger"
	"github.com/zyadwael2009/gym/internal/metrics"
	"github.com/zyadwael2009/gym/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo    Repository
	service Service
}

func NewHandler(db *sqlx.DB) *Handler {
	repo := NewRepository(db)
	return &Handler{
		repo:    repo,
		service: NewService(repo, customer.NewRepository(db), subscription.NewRepository(db)),
	}
}

// @Summary      Validate entry without recording it
// @Description  Dry run of the admission checks; nothing is persisted
// @Tags         attendance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body attendance.CheckinRequest true "Entry attempt"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Router       /attendance/validate [post]
func (h *Handler) Validate(c *gin.Context) {
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.service.ValidateEntry(c.Request.Context(), req.CustomerID, req.BranchID); err != nil {
		if api.IsRejection(err) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		logger.Errorf("Entry validation failed: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "access granted"})
}

// @Summary      Check a member in
// @Description  Records the attempt whether admitted or denied; the response carries the outcome
// @Tags         attendance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body attendance.CheckinRequest true "Entry attempt"
// @Success      201 {object} attendance.Record
// @Failure      400 {object} api.ErrorResponse
// @Router       /attendance/checkin [post]
func (h *Handler) Checkin(c *gin.Context) {
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	var processedByID *int
	if actor, ok := auth.GetActor(c); ok && actor.IsStaff() {
		processedByID = &actor.ID
	}

	record, err := h.service.RecordEntry(c.Request.Context(), req, processedByID)
	if err != nil {
		logger.Errorf("Failed to record entry for customer %d: %v", req.CustomerID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to record entry"})
		return
	}

	outcome := "granted"
	if !record.AccessGranted {
		outcome = "denied"
	}
	metrics.RecordCheckin(outcome, record.EntryMethod)

	c.JSON(http.StatusCreated, record)
}

// @Summary      Check a member out
// @Tags         attendance
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        recordID path int true "Attendance record ID"
// @Param        request body attendance.CheckoutRequest false "Optional exit time (HH:MM); defaults to now"
// @Success      200 {object} attendance.Record
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /attendance/{recordID}/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("recordID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid record id"})
		return
	}

	var req CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}
	var exitClock *time.Time
	if req.ExitTime != "" {
		parsed, err := time.Parse("15:04", req.ExitTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid exit_time, expected HH:MM"})
			return
		}
		exitClock = &parsed
	}

	record, err := h.service.MarkExit(c.Request.Context(), id, exitClock)
	if err != nil {
		if api.IsRejection(err) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "record not found"})
			return
		}
		logger.Errorf("Failed to mark exit for record %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to mark exit"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// @Summary      List attendance records
// @Tags         attendance
// @Produce      json
// @Security     BearerAuth
// @Param        customer_id query int false "Filter by customer"
// @Param        branch_id query int false "Filter by branch"
// @Param        date query string false "Filter by entry date (YYYY-MM-DD)"
// @Param        denied query bool false "Only denied attempts"
// @Param        page query int false "Page number"
// @Success      200 {object} attendance.ListResponse
// @Router       /attendance [get]
func (h *Handler) List(c *gin.Context) {
	customerID, _ := strconv.Atoi(c.Query("customer_id"))
	branchID, _ := strconv.Atoi(c.Query("branch_id"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	filter := ListFilter{
		CustomerID: customerID,
		BranchID:   branchID,
		OnlyDenied: c.Query("denied") == "true",
		Page:       page,
		PerPage:    perPage,
	}
	if s := c.Query("date"); s != "" {
		date, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid date"})
			return
		}
		filter.Date = date
	}

	records, total, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		logger.Errorf("Failed to list attendance: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load attendance"})
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Records:    records,
		Pagination: api.NewPagination(page, perPage, total),
	})
}

type ListResponse struct {
	Records    []Record       `json:"records"`
	Pagination api.Pagination `json:"pagination"`
}

// @Summary      Today's door summary
// @Tags         attendance
// @Produce      json
// @Security     BearerAuth
// @Param        branch_id query int false "Filter by branch"
// @Success      200 {object} attendance.DaySummary
// @Router       /attendance/today [get]
func (h *Handler) Today(c *gin.Context) {
	branchID, _ := strconv.Atoi(c.Query("branch_id"))

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	summary, err := h.repo.DaySummary(c.Request.Context(), branchID, today)
	if err != nil {
		logger.Errorf("Failed to build day summary: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary      Member visit history
// @Tags         attendance
// @Produce      json
// @Security     BearerAuth
// @Param        customerID path int true "Customer ID"
// @Param        limit query int false "Max records (default 30)"
// @Success      200 {object} attendance.HistoryResponse
// @Router       /attendance/customers/{customerID} [get]
func (h *Handler) History(c *gin.Context) {
	customerID, err := strconv.Atoi(c.Param("customerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid customer id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	records, stats, err := h.repo.CustomerHistory(c.Request.Context(), customerID, limit)
	if err != nil {
		logger.Errorf("Failed to load history for customer %d: %v", customerID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{Records: records, Stats: *stats})
}

type HistoryResponse struct {
	Records []Record   `json:"records"`
	Stats   VisitStats `json:"stats"`
}
