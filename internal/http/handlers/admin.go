package handlers

import (
	"net/http"

	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// ConfigInvalidator drops cached assistant configuration so the next
// read hits the database.
type ConfigInvalidator interface {
	Invalidate()
}

// AdminHandler exposes operator-only maintenance endpoints. The router
// mounts it behind JWT auth.
type AdminHandler struct {
	configs ConfigInvalidator
	logger  *logging.Logger
}

func NewAdminHandler(configs ConfigInvalidator, logger *logging.Logger) *AdminHandler {
	if configs == nil {
		panic("handlers: config invalidator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{configs: configs, logger: logger}
}

// InvalidateAssistantConfig serves POST /admin/assistant/invalidate.
func (h *AdminHandler) InvalidateAssistantConfig(w http.ResponseWriter, r *http.Request) {
	h.configs.Invalidate()
	h.logger.Info("assistant config cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}
