// Package api provides the HTTP front-end for quartermaster.
// It is a thin collaborator: request parsing and response rendering only,
// with all state machines behind the fulfillment coordinator and the ledger.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quartermaster-shop/quartermaster/internal/app/fulfillment"
	"github.com/quartermaster-shop/quartermaster/internal/domain"
)

// Server is the quartermaster HTTP API server.
type Server struct {
	coord          *fulfillment.Coordinator
	ledger         domain.Ledger
	catalog        domain.Catalog
	session        domain.CommandSession
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(coord *fulfillment.Coordinator, ledger domain.Ledger, cat domain.Catalog, session domain.CommandSession) *Server {
	return &Server{coord: coord, ledger: ledger, catalog: cat, session: session}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/shop", s.handleShop)
		r.Get("/session", s.handleSession)

		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/balance", s.handleBalance)
			r.Get("/purchases", s.handlePurchases)
			r.Post("/link", s.handleLink)
			r.Post("/purchase", s.handlePurchase)
			r.Post("/daily", s.handleDaily)
			r.Post("/welcome-pack", s.handleWelcomePack)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Read Handlers ──────────────────────────────────────────────────────────

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items":        s.catalog.Items(),
		"welcome_pack": s.catalog.WelcomePack(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"state": s.session.State().String(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct, err := s.ledger.GetAccount(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handlePurchases(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.PurchaseHistory(chi.URLParam(r, "id"), 50)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []domain.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": records})
}

// ─── Mutating Handlers ──────────────────────────────────────────────────────

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID string `json:"game_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		writeError(w, http.StatusBadRequest, "missing_game_id", "body must contain game_id")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.ledger.LinkGameID(id, req.GameID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":      id,
		"game_id": req.GameID,
	})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item string `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Item == "" {
		writeError(w, http.StatusBadRequest, "missing_item", "body must contain item")
		return
	}
	item, err := s.coord.Purchase(chi.URLParam(r, "id"), req.Item)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":  item,
		"price": item.Price,
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	bonus, err := s.coord.ClaimDaily(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bonus":  bonus,
		"detail": domain.FormatCoins(bonus) + " granted",
	})
}

func (s *Server) handleWelcomePack(w http.ResponseWriter, r *http.Request) {
	delivered, err := s.coord.ClaimWelcomePack(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if delivered == nil {
		delivered = []domain.PackItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeDomainError maps the fulfillment error surface onto HTTP statuses.
// Precondition errors are 4xx with a named code; a delivery failure reports
// that the refund already ran; anything else is a generic 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var cd *domain.CooldownError
	switch {
	case errors.Is(err, domain.ErrUnknownItem):
		writeError(w, http.StatusNotFound, "unknown_item", err.Error())
	case errors.Is(err, domain.ErrNotLinked):
		writeError(w, http.StatusBadRequest, "not_linked", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrAlreadyGranted):
		writeError(w, http.StatusConflict, "already_granted", err.Error())
	case errors.As(err, &cd):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{
				"code":              "cooling_down",
				"message":           err.Error(),
				"remaining_seconds": int64(cd.Remaining.Seconds()),
			},
		})
	case errors.Is(err, domain.ErrDeliveryFailed):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": map[string]any{
				"code":     "delivery_failed",
				"message":  err.Error(),
				"refunded": true,
			},
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	})
}
