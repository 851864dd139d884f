package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockpoint-erp/stockpoint-erp/internal/auth"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/transfer"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Sessions        *auth.SessionManager
	AuthHandler     *auth.Handler
	TransferHandler *transfer.Handler
	LedgerHandler   *ledger.Handler
}

// NewRouter constructs the chi.Router. All inventory endpoints sit behind the
// session middleware; only /healthz and /auth/login are public.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth(params.Sessions))
		params.TransferHandler.MountRoutes(r)
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
	})

	return r
}
