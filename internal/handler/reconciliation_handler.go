package handler

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"payment-recon/internal/decoder"
	"payment-recon/internal/domain"
	"payment-recon/internal/engine"
	"payment-recon/internal/service"
	"payment-recon/pkg/logger"
	"payment-recon/pkg/response"
)

type ReconciliationHandler struct {
	service service.ReconciliationService
}

func NewReconciliationHandler(service service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

// Reconcile godoc
// @Summary Run a reconciliation
// @Description Reconcile the deposit and withdraw ledgers against one or more payment-channel statements
// @Tags reconciliation
// @Accept multipart/form-data
// @Produce json
// @Param deposit formData file false "Deposit ledger file (CSV or XLSX)"
// @Param withdraw formData file false "Withdraw ledger file (CSV or XLSX)"
// @Param channels formData file true "Channel statement files; channel name is the file name without extension"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/reconcile [post]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "Invalid multipart form", err.Error())
		return
	}

	var input engine.Input

	if input.Deposit, err = decodeFormFile(form, "deposit"); err != nil {
		response.BadRequest(c, "Failed to decode deposit file", err.Error())
		return
	}
	if input.Withdraw, err = decodeFormFile(form, "withdraw"); err != nil {
		response.BadRequest(c, "Failed to decode withdraw file", err.Error())
		return
	}

	channelFiles := form.File["channels"]
	if len(channelFiles) == 0 {
		response.BadRequest(c, "At least one channel file is required", "")
		return
	}
	if input.Deposit.Empty() && input.Withdraw.Empty() {
		response.BadRequest(c, "At least one ledger file is required", "")
		return
	}

	for _, header := range channelFiles {
		table, err := decodeFile(header)
		if err != nil {
			response.BadRequest(c, "Failed to decode channel file "+header.Filename, err.Error())
			return
		}
		input.Channels = append(input.Channels, domain.NamedTable{
			Name:  channelName(header.Filename),
			Table: table,
		})
	}

	result, err := h.service.Reconcile(c.Request.Context(), input)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Reconciliation failed")
		response.InternalError(c, "Reconciliation failed", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "Reconciliation completed successfully", result)
}

func decodeFormFile(form *multipart.Form, field string) (domain.RawTable, error) {
	files := form.File[field]
	if len(files) == 0 {
		return domain.RawTable{}, nil
	}
	return decodeFile(files[0])
}

func decodeFile(header *multipart.FileHeader) (domain.RawTable, error) {
	file, err := header.Open()
	if err != nil {
		return domain.RawTable{}, err
	}
	defer file.Close()

	return decoder.Decode(header.Filename, file)
}

// channelName derives the channel identifier from an uploaded file name,
// e.g. "alipay_2024-01.csv" -> "alipay_2024-01".
func channelName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
