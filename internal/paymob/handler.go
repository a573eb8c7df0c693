package paymob

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zyadwael2009/gym/internal/api"
	"github.com/zyadwael2009/gym/internal/customer"
	"github.com/zyadwael2009/gym/internal/logger"
	"github.com/zyadwael2009/gym/internal/metrics"
	"github.com/zyadwael2009/gym/internal/notification"
	"github.com/zyadwael2009/gym/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// The webhook completes payments with no staff actor; audit rows use 0.
const systemActorID = 0

type Handler struct {
	client    *Client
	payments  payment.Repository
	customers customer.Repository
	notifier  *notification.Service
}

func NewHandler(client *Client, db *sqlx.DB, notifier *notification.Service) *Handler {
	return &Handler{
		client:    client,
		payments:  payment.NewRepository(db),
		customers: customer.NewRepository(db),
		notifier:  notifier,
	}
}

type initiateRequest struct {
	Method string `json:"method" binding:"omitempty,oneof=card wallet"`
}

// @Summary      Start an online payment
// @Description  Builds a hosted checkout URL for a pending payment; the webhook settles it
// @Tags         paymob
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        paymentID path int true "Payment ID"
// @Param        request body paymob.initiateRequest false "card (default) or wallet"
// @Success      200 {object} paymob.InitiateResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /payments/{paymentID}/pay-online [post]
func (h *Handler) Initiate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("paymentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payment id"})
		return
	}

	var req initiateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}

	pay, err := h.payments.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load payment"})
		return
	}
	if pay.Status != payment.StatusPending {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "only pending payments can be paid online"})
		return
	}

	cust, err := h.customers.GetByID(c.Request.Context(), pay.CustomerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load customer"})
		return
	}

	firstName, lastName := splitName(cust.FullName)
	result, err := h.client.InitiatePayment(c.Request.Context(), InitiateRequest{
		AmountCents:     pay.AmountCents,
		MerchantOrderID: fmt.Sprintf("GYM-%s-%d", pay.PaymentNumber, time.Now().UnixMilli()),
		Billing:         NewBillingData(firstName, lastName, cust.Email, cust.Phone),
		UseMobileWallet: req.Method == "wallet",
	})
	if err != nil {
		logger.Errorf("Paymob initiation failed for payment %d: %v", id, err)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "payment gateway unavailable"})
		return
	}

	if err := h.payments.SetReference(c.Request.Context(), id, strconv.FormatInt(result.OrderID, 10)); err != nil {
		logger.Errorf("Failed to store gateway reference for payment %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to store gateway reference"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary      Paymob webhook
// @Description  Settles a payment from the signed gateway callback
// @Tags         paymob
// @Accept       json
// @Produce      json
// @Param        hmac query string true "Callback signature"
// @Success      200 {object} api.MessageResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /paymob/callback [post]
func (h *Handler) Callback(c *gin.Context) {
	var body struct {
		Obj map[string]interface{} `json:"obj"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Obj == nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid callback payload"})
		return
	}

	receivedHMAC := c.Query("hmac")
	if receivedHMAC == "" {
		receivedHMAC, _ = body.Obj["hmac"].(string)
	}
	if !h.client.VerifyCallback(body.Obj, receivedHMAC) {
		logger.Warn("Paymob callback failed HMAC verification")
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "invalid signature"})
		return
	}

	tx := ParseCallback(body.Obj)
	if tx.Pending {
		// Intermediate notification; the final one follows.
		c.JSON(http.StatusOK, api.MessageResponse{Message: "acknowledged"})
		return
	}

	pay, err := h.payments.GetByReference(c.Request.Context(), strconv.FormatInt(tx.OrderID, 10))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Warn("Paymob callback for unknown order", "order_id", tx.OrderID)
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load payment"})
		return
	}

	if tx.Success && !tx.ErrorOccured {
		result, err := h.payments.Complete(c.Request.Context(), pay.ID, systemActorID, strconv.FormatInt(tx.TransactionID, 10))
		if err != nil {
			// A replayed callback hits the already-processed guard;
			// acknowledge it so the gateway stops retrying.
			if api.IsRejection(err) {
				c.JSON(http.StatusOK, api.MessageResponse{Message: "already settled"})
				return
			}
			logger.Errorf("Failed to complete payment %d from callback: %v", pay.ID, err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to settle payment"})
			return
		}
		metrics.RecordPayment(payment.StatusCompleted, pay.PaymentMethod)
		if result.SubscriptionActivated {
			metrics.RecordSubscriptionTransition("activated")
		}
		if h.notifier != nil {
			cust, _ := h.customers.GetByID(c.Request.Context(), pay.CustomerID)
			if cust != nil {
				h.notifier.SendPaymentReceipt(c.Request.Context(), cust.Email, cust.FullName,
					pay.PaymentNumber, pay.AmountCents, pay.PaymentMethod)
			}
		}
	} else {
		if _, err := h.payments.MarkFailed(c.Request.Context(), pay.ID, systemActorID, "gateway reported failure"); err != nil && !api.IsRejection(err) {
			logger.Errorf("Failed to mark payment %d failed from callback: %v", pay.ID, err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to settle payment"})
			return
		}
		metrics.RecordPayment(payment.StatusFailed, pay.PaymentMethod)
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "processed"})
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Customer", "User"
	case 1:
		return parts[0], "User"
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
