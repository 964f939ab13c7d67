// Package calculations provides the delivery price calculation domain module.
package calculations

import (
	"delivery_price_calculator/internal/calculations/handler"
	"delivery_price_calculator/internal/calculations/repository"
	"delivery_price_calculator/internal/calculations/service"
	apphttp "delivery_price_calculator/internal/http"
	"delivery_price_calculator/platform/config"
	"delivery_price_calculator/platform/events"
	"delivery_price_calculator/platform/logger"
	"delivery_price_calculator/platform/validator"
)

// Module represents the calculations domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new calculations module with all dependencies wired.
// bus may be nil, in which case purges are not announced.
func NewModule(repo repository.Repository, eventBus events.Bus, cfg config.HistoryConfig, val *validator.Validator, log *logger.Logger) *Module {
	opts := []service.Option{}
	if eventBus != nil {
		opts = append(opts, service.WithEventBus(eventBus))
	}
	svc := service.New(repo, log, opts...)

	policies := service.DefaultPolicies()
	if cfg != nil {
		policies = service.PoliciesFromConfig(cfg)
	}

	return &Module{
		handler: handler.New(svc, policies, val, log),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "calculations"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/delivery-prices"))

	// Admin routes exist only when authentication is configured.
	if ctx.Admin != nil {
		m.handler.RegisterAdminRoutes(ctx.Admin)
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
