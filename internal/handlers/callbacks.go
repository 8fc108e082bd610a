package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/frontline/internal/webhook"
)

// Dispatcher runs one decoded webhook event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev webhook.Event) (webhook.Result, error)
}

// CallbacksHandler serves the CRM, conversations and routing callbacks.
type CallbacksHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewCallbacksHandler(log *slog.Logger, dispatcher *webhook.Dispatcher) *CallbacksHandler {
	return newCallbacksHandler(log, dispatcher)
}

func newCallbacksHandler(log *slog.Logger, dispatcher Dispatcher) *CallbacksHandler {
	return &CallbacksHandler{
		dispatcher: dispatcher,
		logger:     log.With(slog.String("handler", "callbacks")),
	}
}

func (h *CallbacksHandler) Register(e *echo.Echo) {
	group := e.Group("/callbacks")
	group.POST("/crm", h.CRM)
	group.POST("/conversations", h.Conversations)
	group.POST("/routing", h.Routing)
}

// CRM godoc
// @Summary CRM callback
// @Description Customer lookups selected by the Location field
// @Tags callbacks
// @Accept x-www-form-urlencoded
// @Param Location formData string true "GetCustomerDetailsByCustomerId or GetCustomersList"
// @Success 200 {object} webhook.CustomersResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /callbacks/crm [post]
func (h *CallbacksHandler) CRM(c echo.Context) error {
	return h.handle(c, webhook.SourceCRM)
}

// Conversations godoc
// @Summary Conversations webhook
// @Description Conversation lifecycle events selected by the EventType field
// @Tags callbacks
// @Accept x-www-form-urlencoded
// @Param EventType formData string true "onConversationAdd, onParticipantAdded or onMessageAdd"
// @Success 200 {object} consent.Override
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /callbacks/conversations [post]
func (h *CallbacksHandler) Conversations(c echo.Context) error {
	return h.handle(c, webhook.SourceConversations)
}

// Routing godoc
// @Summary Inbound routing callback
// @Tags callbacks
// @Accept x-www-form-urlencoded
// @Param ConversationSid formData string true "Conversation SID"
// @Success 200 {object} routing.Decision
// @Failure 500 {object} ErrorResponse
// @Router /callbacks/routing [post]
func (h *CallbacksHandler) Routing(c echo.Context) error {
	return h.handle(c, webhook.SourceRouting)
}

func (h *CallbacksHandler) handle(c echo.Context, source webhook.Source) error {
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev, err := webhook.Decode(source, values)
	if err != nil {
		h.logger.Info("callback rejected", slog.String("path", c.Path()), slog.Any("error", err))
		return echo.NewHTTPError(webhook.StatusOf(err), err.Error())
	}
	res, err := h.dispatcher.Dispatch(c.Request().Context(), ev)
	if err != nil {
		return echo.NewHTTPError(webhook.StatusOf(err), err.Error())
	}
	return writeResult(c, res)
}

func writeResult(c echo.Context, res webhook.Result) error {
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	switch body := res.Body.(type) {
	case nil:
		return c.NoContent(status)
	case string:
		return c.String(status, body)
	default:
		return c.JSON(status, body)
	}
}
