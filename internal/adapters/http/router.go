package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

type Handler struct {
	service  *application.Service
	verifier ports.TokenVerifier
	logger   *slog.Logger
}

func NewHandler(service *application.Service, verifier ports.TokenVerifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, verifier: verifier, logger: logger}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(handler.accessMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/v1", func(r chi.Router) {
		r.Route("/deals", func(r chi.Router) {
			r.Get("/{id}", handler.getDeal)
			r.Get("/{id}/arbitration", handler.listArbitration)

			r.Group(func(r chi.Router) {
				r.Use(handler.authMiddleware)
				r.Post("/", handler.createDeal)
				r.Post("/{id}/accept", handler.acceptDeal)
				r.Post("/{id}/approve", handler.approveDeal)
				r.Post("/{id}/cancel", handler.cancelDeal)
				r.Post("/{id}/arbitration", handler.requestArbitration)
				r.Post("/{id}/verdict", handler.applyVerdict)
				r.Get("/{id}/contact", handler.getCounterpartyContact)
			})
		})
		r.Get("/accounts/{address}/deals", handler.listDealsForAddress)
		r.Get("/accounts/{address}/position", handler.getPosition)
		r.Get("/escrow/balance", handler.getBalance)
	})
	return r
}
