package customer

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/zyadwael2009/gym/internal/api"
	"github.com/zyadwael2009/gym/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// @Summary      Register a customer
// @Description  Creates a member and allocates a member id from the branch code
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body customer.CreateCustomerRequest true "Customer payload"
// @Success      201 {object} customer.Customer
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /customers [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	customer, err := h.repo.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "branch not found or inactive"})
			return
		}
		logger.Errorf("Failed to create customer %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create customer"})
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        branch_id query int false "Filter by branch"
// @Param        active query bool false "Only active members"
// @Param        search query string false "Match member id, name or phone"
// @Param        page query int false "Page number"
// @Param        per_page query int false "Page size (max 100)"
// @Success      200 {object} customer.ListResponse
// @Router       /customers [get]
func (h *Handler) List(c *gin.Context) {
	branchID, _ := strconv.Atoi(c.Query("branch_id"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	customers, total, err := h.repo.List(c.Request.Context(), ListFilter{
		BranchID:   branchID,
		OnlyActive: c.Query("active") == "true",
		Search:     c.Query("search"),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		logger.Errorf("Failed to list customers: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load customers"})
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Customers:  customers,
		Pagination: api.NewPagination(page, perPage, total),
	})
}

type ListResponse struct {
	Customers  []Customer     `json:"customers"`
	Pagination api.Pagination `json:"pagination"`
}

// @Summary      Get a customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        customerID path int true "Customer ID"
// @Success      200 {object} customer.Customer
// @Failure      404 {object} api.ErrorResponse
// @Router       /customers/{customerID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("customerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid customer id"})
		return
	}

	customer, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "customer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load customer"})
		return
	}

	c.JSON(http.StatusOK, customer)
}

// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        customerID path int true "Customer ID"
// @Param        request body customer.UpdateCustomerRequest true "Fields to update"
// @Success      200 {object} customer.Customer
// @Failure      404 {object} api.ErrorResponse
// @Router       /customers/{customerID} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("customerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid customer id"})
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	customer, err := h.repo.Update(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "customer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update customer"})
		return
	}

	c.JSON(http.StatusOK, customer)
}

// @Summary      Deactivate a customer
// @Description  Members are never deleted; this flips the active flag
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        customerID path int true "Customer ID"
// @Success      200 {object} api.MessageResponse
// @Router       /customers/{customerID} [delete]
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("customerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid customer id"})
		return
	}

	if err := h.repo.Deactivate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to deactivate customer"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "customer deactivated"})
}
