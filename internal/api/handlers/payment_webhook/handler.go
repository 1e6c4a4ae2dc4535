package payment_webhook

import (
	"context"
	"errors"
	"net/http"

	"github.com/m04kA/SMC-EduBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-EduBookingService/internal/integrations/stripe"
	reconcilePayment "github.com/m04kA/SMC-EduBookingService/internal/usecase/reconcile_payment"
)

const (
	msgInvalidBody      = "некорректное тело запроса"
	msgInvalidSignature = "некорректная подпись"
	msgInvalidEvent     = "некорректное событие"
)

type Handler struct {
	parser  EventParser
	useCase ReconcilePaymentUseCase
	opts    Options
	logger  Logger
}

func NewHandler(parser EventParser, useCase ReconcilePaymentUseCase, opts Options, logger Logger) *Handler {
	return &Handler{
		parser:  parser,
		useCase: useCase,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
}

// Handle POST /api/v1/payments/webhook
// 2xx означает, что событие принято или сознательно пропущено. 5xx просит провайдера повторить доставку.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := handlers.ReadBody(w, r, h.opts.MaxBodyBytes)
	if err != nil {
		h.logger.Warn("POST /payments/webhook - Failed to read body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBody)
		return
	}

	// Подпись проверяется до разбора, при ошибке состояние не трогается
	event, err := h.parser.Parse(payload, r.Header.Get(h.opts.SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, stripe.ErrInvalidSignature):
			h.logger.Warn("POST /payments/webhook - Signature rejected: remote=%s, error=%v", r.RemoteAddr, err)
			handlers.RespondBadRequest(w, msgInvalidSignature)
		default:
			h.logger.Warn("POST /payments/webhook - Malformed event: %v", err)
			handlers.RespondBadRequest(w, msgInvalidEvent)
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	result, err := h.useCase.Execute(ctx, event)
	if err != nil {
		switch {
		case errors.Is(err, reconcilePayment.ErrInvalidEvent):
			h.logger.Warn("POST /payments/webhook - Invalid event: event_id=%s, error=%v", event.ID, err)
			handlers.RespondBadRequest(w, msgInvalidEvent)
		default:
			h.logger.Error("POST /payments/webhook - Failed to process event: event_id=%s, type=%s, error=%v",
				event.ID, event.ProviderType, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /payments/webhook - Event processed: event_id=%s, type=%s, outcome=%s",
		event.ID, event.ProviderType, result.Outcome)
	handlers.RespondJSON(w, http.StatusOK, WebhookResponse{Received: true, Outcome: string(result.Outcome)})
}
