package payment

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
	"github.com/zyadwael2009/gym/internal/notification"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo      Repository
	customers customer.Repository
	notifier  *notification.Service
}

func NewHandler(db *sqlx.DB, notifier *notification.Service) *Handler {
	return &Handler{
		repo:      NewRepository(db),
		customers: customer.NewRepository(db),
		notifier:  notifier,
	}
}

func respondError(c *gin.Context, err error, what string) {
	if api.IsRejection(err) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: what + " not found"})
		return
	}
	logger.Errorf("Payment operation failed (%s): %v", what, err)
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
}

// @Summary      Record a payment
// @Description  Creates a pending payment against a customer, optionally tied to a subscription
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.CreatePaymentRequest true "Payment payload"
// @Success      201 {object} payment.Payment
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /payments [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	actor, _ := auth.GetActor(c)
	payment, err := h.repo.Create(c.Request.Context(), req, actor.ID)
	if err != nil {
		respondError(c, err, "customer or subscription")
		return
	}

	metrics.RecordPayment(payment.Status, payment.PaymentMethod)
	c.JSON(http.StatusCreated, payment)
}

// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "pending|completed|failed|refunded"
// @Param        customer_id query int false "Filter by customer"
// @Param        subscription_id query int false "Filter by subscription"
// @Param        branch_id query int false "Filter by branch"
// @Param        page query int false "Page number"
// @Success      200 {object} payment.ListResponse
// @Router       /payments [get]
func (h *Handler) List(c *gin.Context) {
	customerID, _ := strconv.Atoi(c.Query("customer_id"))
	subscriptionID, _ := strconv.Atoi(c.Query("subscription_id"))
	branchID, _ := strconv.Atoi(c.Query("branch_id"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	payments, total, err := h.repo.List(c.Request.Context(), ListFilter{
		Status:         c.Query("status"),
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		BranchID:       branchID,
		Page:           page,
		PerPage:        perPage,
	})
	if err != nil {
		respondError(c, err, "payments")
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Payments:   payments,
		Pagination: api.NewPagination(page, perPage, total),
	})
}

type ListResponse struct {
	Payments   []Payment      `json:"payments"`
	Pagination api.Pagination `json:"pagination"`
}

// @Summary      Get a payment with its audit trail
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        paymentID path int true "Payment ID"
// @Success      200 {object} payment.DetailResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /payments/{paymentID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payment id"})
		return
	}

	payment, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "payment")
		return
	}

	trail, err := h.repo.AuditTrail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "payment")
		return
	}

	c.JSON(http.StatusOK, DetailResponse{Payment: *payment, AuditTrail: trail})
}

type DetailResponse struct {
	Payment    Payment    `json:"payment"`
	AuditTrail []AuditLog `json:"audit_trail"`
}

// @Summary      Complete a payment
// @Description  Marks the payment completed; activates the linked subscription once fully paid
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        paymentID path int true "Payment ID"
// @Param        request body object{reference_number=string} false "Processing details"
// @Success      200 {object} payment.CompleteResult
// @Failure      400 {object} api.ErrorResponse
// @Router       /payments/{paymentID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payment id"})
		return
	}

	var req struct {
		ReferenceNumber string `json:"reference_number"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}

	actor, _ := auth.GetActor(c)
	result, err := h.repo.Complete(c.Request.Context(), id, actor.ID, req.ReferenceNumber)
	if err != nil {
		respondError(c, err, "payment")
		return
	}

	metrics.RecordPayment(StatusCompleted, result.Payment.PaymentMethod)
	if result.SubscriptionActivated {
		metrics.RecordSubscriptionTransition("activated")
	}

	// Receipt email; delivery is queued and never blocks the request.
	if h.notifier != nil {
		cust, _ := h.customers.GetByID(c.Request.Context(), result.Payment.CustomerID)
		if cust != nil {
			h.notifier.SendPaymentReceipt(c.Request.Context(), cust.Email, cust.FullName,
				result.Payment.PaymentNumber, result.Payment.AmountCents, result.Payment.PaymentMethod)
		}
	}

	c.JSON(http.StatusOK, result)
}

// @Summary      Mark a payment failed
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        paymentID path int true "Payment ID"
// @Param        request body object{reason=string} false "Failure details"
// @Success      200 {object} payment.Payment
// @Failure      400 {object} api.ErrorResponse
// @Router       /payments/{paymentID}/fail [post]
func (h *Handler) MarkFailed(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payment id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}

	actor, _ := auth.GetActor(c)
	payment, err := h.repo.MarkFailed(c.Request.Context(), id, actor.ID, req.Reason)
	if err != nil {
		respondError(c, err, "payment")
		return
	}

	metrics.RecordPayment(StatusFailed, payment.PaymentMethod)
	c.JSON(http.StatusOK, payment)
}

// @Summary      Refund a payment
// @Description  Only completed payments can be refunded; the linked subscription keeps its status
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        paymentID path int true "Payment ID"
// @Param        request body payment.RefundRequest false "Refund payload"
// @Success      200 {object} payment.Payment
// @Failure      400 {object} api.ErrorResponse
// @Router       /payments/{paymentID}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payment id"})
		return
	}

	var req RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}

	actor, _ := auth.GetActor(c)
	payment, err := h.repo.Refund(c.Request.Context(), id, actor.ID, req.Reason)
	if err != nil {
		respondError(c, err, "payment")
		return
	}

	metrics.RecordPayment(StatusRefunded, payment.PaymentMethod)
	c.JSON(http.StatusOK, payment)
}

// @Summary      Takings summary
// @Description  Accountant view: completed and refunded totals, split by method
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        branch_id query int false "Filter by branch"
// @Param        from query string false "Period start (YYYY-MM-DD, default month start)"
// @Param        to query string false "Period end (YYYY-MM-DD, default today)"
// @Success      200 {object} payment.Summary
// @Router       /payments/summary [get]
func (h *Handler) Summary(c *gin.Context) {
	branchID, _ := strconv.Atoi(c.Query("branch_id"))

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := now

	if s := c.Query("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid from date"})
			return
		}
		from = parsed
	}
	if s := c.Query("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid to date"})
			return
		}
		to = parsed
	}

	summary, err := h.repo.Summarize(c.Request.Context(), branchID, from, to)
	if err != nil {
		respondError(c, err, "payments")
		return
	}

	c.JSON(http.StatusOK, summary)
}
