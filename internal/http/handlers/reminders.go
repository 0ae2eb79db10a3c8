package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hostwise/guestline-ai-platform/internal/scheduler"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// ReminderService controls the reminder plan for a stay.
type ReminderService interface {
	ScheduleForStay(ctx context.Context, stayID uuid.UUID) (scheduler.Result, error)
	RescheduleForStay(ctx context.Context, stayID uuid.UUID) (scheduler.Result, error)
	CancelForStay(ctx context.Context, stayID uuid.UUID) (scheduler.Result, error)
}

// RemindersHandler exposes the reminder control endpoints used by the
// booking sync pipeline.
type RemindersHandler struct {
	service ReminderService
	logger  *logging.Logger
}

func NewRemindersHandler(service ReminderService, logger *logging.Logger) *RemindersHandler {
	if service == nil {
		panic("handlers: reminder service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RemindersHandler{service: service, logger: logger}
}

type reminderResponse struct {
	Result string `json:"result"`
}

// Schedule serves POST /stays/{stayID}/reminders/schedule.
func (h *RemindersHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.service.ScheduleForStay)
}

// Reschedule serves POST /stays/{stayID}/reminders/reschedule.
func (h *RemindersHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.service.RescheduleForStay)
}

// Cancel serves POST /stays/{stayID}/reminders/cancel.
func (h *RemindersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.service.CancelForStay)
}

func (h *RemindersHandler) control(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (scheduler.Result, error)) {
	stayID, err := uuid.Parse(chi.URLParam(r, "stayID"))
	if err != nil {
		http.Error(w, "invalid stay id", http.StatusBadRequest)
		return
	}

	result, err := op(r.Context(), stayID)
	if err != nil {
		h.logger.Error("reminder operation failed", "error", err, "stay_id", stayID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if result == scheduler.ResultNotFound {
		http.Error(w, "stay not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, reminderResponse{Result: string(result)})
}
