package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/credvault/internal/httputil"
	customValidation "github.com/allisson/credvault/internal/validation"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	"github.com/allisson/credvault/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// Event intake statuses.
const (
	EventStatusProcessed = "processed"
	EventStatusIgnored   = "ignored"
)

// EventHandler consumes platform events delivered by webhook.
type EventHandler struct {
	purgeUseCase vaultUseCase.PurgeUseCase
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(purgeUseCase vaultUseCase.PurgeUseCase, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		purgeUseCase: purgeUseCase,
		logger:       logger,
	}
}

// ReceiveHandler dispatches an inbound event.
// POST /v1/events - Requires the webhook bearer token.
// user.deleted purges the user's vault data and returns 200 with the removed row counts.
// Unknown event types are acknowledged with 202 and ignored.
func (h *EventHandler) ReceiveHandler(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	switch vaultDomain.EventType(req.EventType) {
	case vaultDomain.EventUserDeleted:
		h.handleUserDeleted(c, req)
	default:
		h.logger.Info("ignoring unsupported event", slog.String("event_type", req.EventType))
		c.JSON(http.StatusAccepted, dto.EventResponse{
			EventType: req.EventType,
			Status:    EventStatusIgnored,
		})
	}
}

func (h *EventHandler) handleUserDeleted(c *gin.Context, req dto.EventRequest) {
	var data dto.UserDeletedData
	if err := json.Unmarshal(req.Data, &data); err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid %s data: %w", req.EventType, err), h.logger)
		return
	}
	if err := data.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.purgeUseCase.PurgeUser(c.Request.Context(), data.UserID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EventResponse{
		EventType: req.EventType,
		Status:    EventStatusProcessed,
		Result:    result,
	})
}
