package checkoutReturn

import (
	"context"
	"log/slog"
	"net/http"

	"eventTicketing/internal/config"
	"eventTicketing/internal/fulfilment"
	"eventTicketing/internal/lib/api/response"
	"eventTicketing/internal/lib/logger/sl"
	"eventTicketing/internal/provider"

	"github.com/go-chi/render"
)

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=SessionGetter
type SessionGetter interface {
	GetCheckoutSession(ctx context.Context, id string) (*provider.CheckoutSession, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Fulfiller
type Fulfiller interface {
	Fulfil(ctx context.Context, c fulfilment.Checkout) fulfilment.Result
}

// New handles the payer's browser coming back from checkout. It runs the
// same fulfilment as the webhook, so whichever arrives first registers the
// payer and the other finds the registration already there.
func New(log *slog.Logger, cfg config.Payment, sessions SessionGetter, fulfiller Fulfiller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.payment.checkoutReturn.New"

		log := log.With(slog.String("op", op))

		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			log.Error("session id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("session_id is required"))
			return
		}

		log = log.With(slog.String("session_id", sessionID))

		session, err := sessions.GetCheckoutSession(r.Context(), sessionID)
		if err != nil {
			log.Error("failed to get checkout session", sl.Err(err))
			http.Redirect(w, r, cfg.ServerErrorURL, http.StatusSeeOther)
			return
		}

		if !session.Paid() {
			log.Warn("checkout session is not paid", slog.String("payment_status", session.PaymentStatus))
			http.Redirect(w, r, cfg.ServerErrorURL, http.StatusSeeOther)
			return
		}

		res := fulfiller.Fulfil(r.Context(), fulfilment.FromSession(session))

		log.Info("checkout returned", slog.String("outcome", res.Outcome.String()))

		http.Redirect(w, r, redirectURL(cfg, res.Outcome), http.StatusSeeOther)
	}
}

func redirectURL(cfg config.Payment, outcome fulfilment.Outcome) string {
	switch outcome {
	case fulfilment.OutcomeSuccess:
		return cfg.SuccessURL
	case fulfilment.OutcomeEmailError:
		return cfg.EmailErrorURL
	case fulfilment.OutcomeSoldOut:
		return cfg.SoldOutURL
	default:
		return cfg.ServerErrorURL
	}
}
