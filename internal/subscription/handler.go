package subscription

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
	"github.com/zyadwael2009/gym/internal/plan"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo      Repository
	customers customer.Repository
	plans     plan.Repository
	notifier  *notification.Service
}

func NewHandler(db *sqlx.DB, notifier *notification.Service) *Handler {
	return &Handler{
		repo:      NewRepository(db),
		customers: customer.NewRepository(db),
		plans:     plan.NewRepository(db),
		notifier:  notifier,
	}
}

// Business refusals surface as 400 with the reason; missing rows as
// 404. Everything else is a 500 and gets logged.
func respondError(c *gin.Context, err error, what string) {
	if api.IsRejection(err) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: what + " not found"})
		return
	}
	logger.Errorf("Subscription operation failed (%s): %v", what, err)
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
}

// @Summary      Create a subscription
// @Description  Opens a pending subscription; it activates once payments cover the price
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body subscription.CreateSubscriptionRequest true "Subscription payload"
// @Success      201 {object} subscription.Subscription
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /subscriptions [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	actor, _ := auth.GetActor(c)
	sub, err := h.repo.Create(c.Request.Context(), req, actor.ID)
	if err != nil {
		respondError(c, err, "customer or plan")
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// @Summary      List subscriptions
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "pending|active|frozen|expired|cancelled"
// @Param        customer_id query int false "Filter by customer"
// @Param        branch_id query int false "Filter by branch"
// @Param        page query int false "Page number"
// @Param        per_page query int false "Page size (max 100)"
// @Success      200 {object} subscription.ListResponse
// @Router       /subscriptions [get]
func (h *Handler) List(c *gin.Context) {
	customerID, _ := strconv.Atoi(c.Query("customer_id"))
	branchID, _ := strconv.Atoi(c.Query("branch_id"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	subs, total, err := h.repo.List(c.Request.Context(), ListFilter{
		Status:     c.Query("status"),
		CustomerID: customerID,
		BranchID:   branchID,
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		respondError(c, err, "subscriptions")
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Subscriptions: subs,
		Pagination:    api.NewPagination(page, perPage, total),
	})
}

type ListResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Pagination    api.Pagination `json:"pagination"`
}

// @Summary      Get a subscription with freeze history
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        subscriptionID path int true "Subscription ID"
// @Success      200 {object} subscription.DetailResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /subscriptions/{subscriptionID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid subscription id"})
		return
	}

	sub, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "subscription")
		return
	}

	history, err := h.repo.FreezeHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "subscription")
		return
	}

	paid, err := h.repo.PaidTotal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "subscription")
		return
	}

	detail := DetailResponse{
		Subscription:  *sub,
		PaidCents:     paid,
		FreezeHistory: history,
	}
	if p, perr := h.plans.GetByID(c.Request.Context(), sub.PlanID); perr == nil {
		detail.Plan = p
	}

	c.JSON(http.StatusOK, detail)
}

type DetailResponse struct {
	Subscription  Subscription `json:"subscription"`
	Plan          *plan.Plan   `json:"plan,omitempty"`
	PaidCents     int64        `json:"paid_cents"`
	FreezeHistory []Freeze     `json:"freeze_history"`
}

// @Summary      Activate a subscription
// @Description  Succeeds only when completed payments cover the purchase price
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        subscriptionID path int true "Subscription ID"
// @Success      200 {object} subscription.Subscription
// @Failure      400 {object} api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/activate [post]
func (h *Handler) Activate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid subscription id"})
		return
	}

	sub, err := h.repo.Activate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "subscription")
		return
	}

	metrics.RecordSubscriptionTransition("activated")

	// Welcome email; queue delivery failures are logged, never surfaced.
	if h.notifier != nil {
		cust, _ := h.customers.GetByID(c.Request.Context(), sub.CustomerID)
		if cust != nil {
			planName := "membership"
			if p, perr := h.plans.GetByID(c.Request.Context(), sub.PlanID); perr == nil {
				planName = p.Name
			}
			h.notifier.SendWelcome(c.Request.Context(), cust.Email, cust.FullName, planName, sub.EndDate)
		}
	}

	c.JSON(http.StatusOK, sub)
}

// @Summary      Freeze a subscription
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        subscriptionID path int true "Subscription ID"
// @Param        request body subscription.FreezeRequest true "Freeze payload"
// @Success      200 {object} subscription.Subscription
// @Failure      400 {object} api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/freeze [post]
func (h *Handler) Freeze(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid subscription id"})
		return
	}

	var req FreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	actor, _ := auth.GetActor(c)
	sub, err := h.repo.Freeze(c.Request.Context(), id, req.Days, req.Reason, actor.ID)
	if err != nil {
		respondError(c, err, "subscription")
		return
	}

	metrics.RecordSubscriptionTransition("frozen")

	if h.notifier != nil {
		cust, _ := h.customers.GetByID(c.Request.Context(), sub.CustomerID)
		if cust != nil {
			h.notifier.SendFreezeConfirmation(c.Request.Context(), cust.Email, cust.FullName, req.Days, sub.EndDate)
		}
	}

	c.JSON(http.StatusOK, sub)
}

// @Summary      Resume a frozen subscription
// @Description  Used freeze days are kept; the extended end date stands
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        subscriptionID path int true "Subscription ID"
// @Success      200 {object} subscription.Subscription
// @Failure      400 {object} api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/unfreeze [post]
func (h *Handler) Unfreeze(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid subscription id"})
		return
	}

	sub, err := h.repo.Unfreeze(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "subscription")
		return
	}

	metrics.RecordSubscriptionTransition("unfrozen")
	c.JSON(http.StatusOK, sub)
}

// @Summary      Cancel a subscription
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        subscriptionID path int true "Subscription ID"
// @Param        request body subscription.CancelRequest false "Cancellation payload"
// @Success      200 {object} subscription.Subscription
// @Failure      400 {object} api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid subscription id"})
		return
	}

	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}

	sub, err := h.repo.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err, "subscription")
		return
	}

	metrics.RecordSubscriptionTransition("cancelled")
	c.JSON(http.StatusOK, sub)
}

// @Summary      Renew a subscription
// @Description  Creates a fresh pending subscription starting after the current term
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        subscriptionID path int true "Subscription ID"
// @Param        request body subscription.RenewRequest false "Renewal payload"
// @Success      201 {object} subscription.Subscription
// @Failure      404 {object} api.ErrorResponse
// @Router       /subscriptions/{subscriptionID}/renew [post]
func (h *Handler) Renew(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("subscriptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid subscription id"})
		return
	}

	var req RenewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}

	actor, _ := auth.GetActor(c)
	sub, err := h.repo.Renew(c.Request.Context(), id, req, actor.ID)
	if err != nil {
		respondError(c, err, "subscription or plan")
		return
	}

	metrics.RecordSubscriptionTransition("renewed")
	c.JSON(http.StatusCreated, sub)
}

// @Summary      Subscriptions expiring soon
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        days query int false "Look-ahead window in days (default 7)"
// @Param        branch_id query int false "Filter by branch"
// @Success      200 {array} subscription.Subscription
// @Router       /subscriptions/expiring [get]
func (h *Handler) Expiring(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	branchID, _ := strconv.Atoi(c.Query("branch_id"))

	subs, err := h.repo.ListExpiring(c.Request.Context(), days, branchID)
	if err != nil {
		respondError(c, err, "subscriptions")
		return
	}

	c.JSON(http.StatusOK, subs)
}

type RemindResponse struct {
	Expiring int `json:"expiring"`
	Notified int `json:"notified"`
}

// @Summary      Send expiry reminders
// @Description  Queues a reminder email for every subscription ending within the window
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        days query int false "Look-ahead window in days (default 7)"
// @Param        branch_id query int false "Filter by branch"
// @Success      200 {object} subscription.RemindResponse
// @Router       /subscriptions/expiring/remind [post]
func (h *Handler) Remind(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	branchID, _ := strconv.Atoi(c.Query("branch_id"))

	subs, err := h.repo.ListExpiring(c.Request.Context(), days, branchID)
	if err != nil {
		respondError(c, err, "subscriptions")
		return
	}

	today := time.Now()
	notified := 0
	for _, sub := range subs {
		cust, _ := h.customers.GetByID(c.Request.Context(), sub.CustomerID)
		if cust == nil {
			continue
		}
		planName := "membership"
		if p, perr := h.plans.GetByID(c.Request.Context(), sub.PlanID); perr == nil {
			planName = p.Name
		}
		if h.notifier.SendExpiryReminder(c.Request.Context(), cust.Email, cust.FullName, planName, sub.EndDate, sub.DaysRemaining(today)) == nil {
			notified++
		}
	}

	c.JSON(http.StatusOK, RemindResponse{Expiring: len(subs), Notified: notified})
}
