package handler

import (
	"net/http"

	"delivery_price_calculator/internal/calculations/service"
	"delivery_price_calculator/internal/calculations/transport"
	"delivery_price_calculator/platform/apperr"
	"delivery_price_calculator/platform/httpkit"
	"delivery_price_calculator/platform/logger"
	"delivery_price_calculator/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgUserIDRequired   = "userId is required"
)

// Handler handles HTTP requests for delivery prices and their history.
type Handler struct {
	svc       *service.Service
	calculate *service.CalculatePriceHandler
	history   *service.GetHistoryHandler
	clear     *service.ClearHistoryHandler
	val       *validator.Validator
	log       *logger.Logger
}

// New creates a new delivery price handler.
func New(svc *service.Service, policies service.Policies, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		svc:       svc,
		calculate: service.NewCalculatePriceHandler(svc),
		history:   service.NewGetHistoryHandler(svc, policies.Query),
		clear:     service.NewClearHistoryHandler(svc, policies.Clear),
		val:       val,
		log:       log,
	}
}

// RegisterRoutes registers the delivery price routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/calculate", h.Calculate)
	rg.POST("/get-history", h.GetHistory)
	rg.POST("/clear-history", h.ClearHistory)
}

// RegisterAdminRoutes registers maintenance routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/calculations", h.PurgeCalculations)
}

// Calculate handles POST /v1/delivery-prices/calculate
func (h *Handler) Calculate(c *gin.Context) {
	var req transport.CalculateRequest
	if !h.bind(c, &req) {
		return
	}
	owner, ok := h.owner(c, req.UserID)
	if !ok {
		return
	}

	result, err := h.calculate.Handle(c.Request.Context(), toCalculateCommand(owner, req))
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.OK(c, toCalculateResponse(result))
}

// GetHistory handles POST /v1/delivery-prices/get-history
func (h *Handler) GetHistory(c *gin.Context) {
	var req transport.GetHistoryRequest
	if !h.bind(c, &req) {
		return
	}
	owner, ok := h.owner(c, req.UserID)
	if !ok {
		return
	}

	take := transport.DefaultHistoryTake
	if req.Take != nil {
		take = *req.Take
	}

	result, err := h.history.Handle(c.Request.Context(), service.GetHistoryQuery{
		UserID:         owner,
		Take:           take,
		Skip:           req.Skip,
		CalculationIDs: req.CalculationIDs,
	})
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.OK(c, toHistoryResponse(result))
}

// ClearHistory handles POST /v1/delivery-prices/clear-history
func (h *Handler) ClearHistory(c *gin.Context) {
	var req transport.ClearHistoryRequest
	if !h.bind(c, &req) {
		return
	}
	owner, ok := h.owner(c, req.UserID)
	if !ok {
		return
	}

	result, err := h.clear.Handle(c.Request.Context(), service.ClearHistoryCommand{
		UserID:         owner,
		CalculationIDs: req.CalculationIDs,
	})
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.OK(c, toClearResponse(result))
}

// PurgeCalculations handles DELETE /v1/admin/calculations
// Calculation rows are removed at once; their goods go with the next orphan sweep.
func (h *Handler) PurgeCalculations(c *gin.Context) {
	var req transport.PurgeCalculationsRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.svc.PurgeCalculations(c.Request.Context(), req.CalculationIDs); httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, transport.PurgeCalculationsResponse{Purged: req.CalculationIDs})
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.HandleError(c, h.log, apperr.BadRequest(msgInvalidRequest))
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, h.log, apperr.Validation(msgValidationFailed).WithDetails(validator.Messages(err)))
		return false
	}
	return true
}

func (h *Handler) owner(c *gin.Context, bodyUserID int64) (int64, bool) {
	owner, ok := httpkit.ResolveOwner(c, bodyUserID)
	if !ok {
		return 0, false
	}
	if owner == 0 {
		httpkit.HandleError(c, h.log, apperr.Validation(msgValidationFailed).WithDetails([]string{msgUserIDRequired}))
		return 0, false
	}
	return owner, true
}
