package branch

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

// @Summary      Create a branch
// @Description  Owner-only: register a new gym branch
// @Tags         branches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body branch.CreateBranchRequest true "Branch payload"
// @Success      201 {object} branch.Branch
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /branches [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	branch, err := h.repo.Create(c.Request.Context(), req)
	if err != nil {
		logger.Errorf("Failed to create branch %s: %v", req.Code, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create branch"})
		return
	}

	c.JSON(http.StatusCreated, branch)
}

// @Summary      List branches
// @Tags         branches
// @Produce      json
// @Security     BearerAuth
// @Param        active query bool false "Only active branches"
// @Success      200 {array} branch.Branch
// @Router       /branches [get]
func (h *Handler) List(c *gin.Context) {
	onlyActive := c.Query("active") == "true"

	branches, err := h.repo.List(c.Request.Context(), onlyActive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load branches"})
		return
	}

	c.JSON(http.StatusOK, branches)
}

// @Summary      Get a branch
// @Tags         branches
// @Produce      json
// @Security     BearerAuth
// @Param        branchID path int true "Branch ID"
// @Success      200 {object} branch.Branch
// @Failure      404 {object} api.ErrorResponse
// @Router       /branches/{branchID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("branchID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid branch id"})
		return
	}

	branch, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "branch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load branch"})
		return
	}

	c.JSON(http.StatusOK, branch)
}

// @Summary      Update a branch
// @Tags         branches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        branchID path int true "Branch ID"
// @Param        request body branch.UpdateBranchRequest true "Fields to update"
// @Success      200 {object} branch.Branch
// @Failure      404 {object} api.ErrorResponse
// @Router       /branches/{branchID} [put]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("branchID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid branch id"})
		return
	}

	var req UpdateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	branch, err := h.repo.Update(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "branch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update branch"})
		return
	}

	c.JSON(http.StatusOK, branch)
}
