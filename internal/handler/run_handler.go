package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"payment-recon/internal/service"
	"payment-recon/pkg/logger"
	"payment-recon/pkg/response"
)

type RunHandler struct {
	service service.ReconciliationService
}

func NewRunHandler(service service.ReconciliationService) *RunHandler {
	return &RunHandler{service: service}
}

// ListRuns godoc
// @Summary List reconciliation runs
// @Description List recent reconciliation runs, newest first
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs to return" default(50)
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/runs [get]
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		response.BadRequest(c, "Invalid limit", "limit must be a non-negative integer")
		return
	}

	runs, err := h.service.ListRuns(limit)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list runs")
		response.InternalError(c, "Failed to list runs", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Runs retrieved successfully", runs)
}

// GetRun godoc
// @Summary Get a reconciliation run
// @Description Get one reconciliation run with its stored report
// @Tags runs
// @Produce json
// @Param run_id path string true "Run ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/runs/{run_id} [get]
func (h *RunHandler) GetRun(c *gin.Context) {
	runID := c.Param("run_id")

	run, err := h.service.GetRun(runID)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("run_id", runID).Error("Run not found")
		response.NotFound(c, "Run not found")
		return
	}

	response.Success(c, http.StatusOK, "Run retrieved successfully", run)
}
