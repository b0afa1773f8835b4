package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/partsync/partsync/internal/notify"
	"github.com/partsync/partsync/internal/observability"
	"github.com/partsync/partsync/internal/platform/httpx"
	"github.com/partsync/partsync/internal/shared"
	"github.com/partsync/partsync/internal/stock"
	"github.com/partsync/partsync/internal/syncer"
	"github.com/partsync/partsync/internal/transfer"
	"github.com/partsync/partsync/jobs"
)

// RouterParams groups dependencies for building the console API router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Ledger        *stock.Ledger
	Notifications *notify.Manager
	Scheduler     *syncer.Scheduler
	Transfers     *transfer.Manager
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router exposing engine state and actions. The
// engine owns all mutable state; these endpoints read copies and trigger the
// operations defined by the engine packages.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/products", func(w http.ResponseWriter, req *http.Request) {
				products := params.Ledger.Products()
				page, _ := strconv.Atoi(req.URL.Query().Get("page"))
				perPage, _ := strconv.Atoi(req.URL.Query().Get("per_page"))
				p := shared.NewPagination(page, perPage, len(products))
				from, to := p.Slice(len(products))
				httpx.JSON(w, http.StatusOK, map[string]any{
					"products":   products[from:to],
					"pagination": p,
					"last_sync":  params.Ledger.LastSync(),
				})
			})
			r.Post("/products/{id}/adjust", func(w http.ResponseWriter, req *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
					return
				}
				var body struct {
					Delta int `json:"delta"`
				}
				if err := httpx.DecodeJSON(req, &body); err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid adjustment payload")
					return
				}
				p, err := params.Ledger.ApplyMutation(id, body.Delta)
				if errors.Is(err, stock.ErrProductNotFound) {
					httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
					return
				}
				httpx.JSON(w, http.StatusOK, p)
			})
			r.Get("/alerts", func(w http.ResponseWriter, req *http.Request) {
				httpx.JSON(w, http.StatusOK, map[string]any{"lowStockAlerts": params.Ledger.Alerts()})
			})
			r.Get("/notifications", func(w http.ResponseWriter, req *http.Request) {
				httpx.JSON(w, http.StatusOK, map[string]any{"notifications": params.Notifications.List()})
			})
			r.Delete("/notifications/{id}", func(w http.ResponseWriter, req *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid notification id")
					return
				}
				if !params.Notifications.Dismiss(id) {
					httpx.Problem(w, http.StatusNotFound, "Not Found", "notification not found")
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})
			r.Post("/sync", func(w http.ResponseWriter, req *http.Request) {
				if err := params.Scheduler.SyncNow(req.Context()); err != nil {
					params.Logger.Warn("manual sync", slog.Any("error", err))
					httpx.Problem(w, http.StatusBadGateway, "Sync Failed", "Failed to sync inventory data")
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{"last_sync": params.Ledger.LastSync()})
			})
			r.Post("/realtime/enable", func(w http.ResponseWriter, req *http.Request) {
				changed := params.Scheduler.Enable()
				httpx.JSON(w, http.StatusOK, map[string]any{"enabled": true, "changed": changed})
			})
			r.Post("/realtime/disable", func(w http.ResponseWriter, req *http.Request) {
				changed := params.Scheduler.Disable()
				httpx.JSON(w, http.StatusOK, map[string]any{"enabled": false, "changed": changed})
			})
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				httpx.JSON(w, http.StatusOK, map[string]any{
					"inventoryTransferListData": params.Transfers.Transfers(),
					"pagination":                params.Transfers.Pagination(),
				})
			})
			r.Post("/refresh", func(w http.ResponseWriter, req *http.Request) {
				var f transfer.Filter
				if req.ContentLength > 0 {
					if err := httpx.DecodeJSON(req, &f); err != nil {
						httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid filter payload")
						return
					}
				}
				violations, err := params.Transfers.ApplyFilters(req.Context(), f)
				if len(violations) > 0 {
					httpx.ValidationProblem(w, violations)
					return
				}
				if err != nil {
					respondEngineError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{
					"inventoryTransferListData": params.Transfers.Transfers(),
					"pagination":                params.Transfers.Pagination(),
				})
			})
			r.Delete("/filters", func(w http.ResponseWriter, req *http.Request) {
				if err := params.Transfers.ClearFilters(req.Context()); err != nil {
					respondEngineError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{
					"inventoryTransferListData": params.Transfers.Transfers(),
					"pagination":                params.Transfers.Pagination(),
				})
			})
			r.Post("/page/{page}", func(w http.ResponseWriter, req *http.Request) {
				page, err := strconv.Atoi(chi.URLParam(req, "page"))
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid page")
					return
				}
				moved, err := params.Transfers.ChangePage(req.Context(), page)
				if err != nil {
					respondEngineError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{
					"moved":      moved,
					"pagination": params.Transfers.Pagination(),
				})
			})
			r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transfer id")
					return
				}
				if err := params.Transfers.Select(id); err != nil {
					respondEngineError(w, err)
					return
				}
				t, _ := params.Transfers.Selected()
				httpx.JSON(w, http.StatusOK, t)
			})
			r.Post("/{id}/complete", func(w http.ResponseWriter, req *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transfer id")
					return
				}
				if err := params.Transfers.Complete(req.Context(), id); err != nil {
					respondEngineError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
			})
			r.Post("/{id}/cancel", func(w http.ResponseWriter, req *http.Request) {
				id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transfer id")
					return
				}
				token, err := params.Transfers.RequestCancel(id)
				if err != nil {
					respondEngineError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{"confirmation_token": token.String()})
			})
			r.Post("/cancel/confirm", func(w http.ResponseWriter, req *http.Request) {
				var body struct {
					ConfirmationToken string `json:"confirmation_token"`
				}
				if err := httpx.DecodeJSON(req, &body); err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid confirmation payload")
					return
				}
				token, err := uuid.Parse(body.ConfirmationToken)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid confirmation token")
					return
				}
				if err := params.Transfers.ConfirmCancel(req.Context(), token); err != nil {
					respondEngineError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
			})
		})

		r.Route("/credential", func(r chi.Router) {
			r.Put("/", func(w http.ResponseWriter, req *http.Request) {
				var body struct {
					APIKey string `json:"api_key"`
				}
				if err := httpx.DecodeJSON(req, &body); err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid credential payload")
					return
				}
				if err := params.Transfers.SupplyCredential(req.Context(), body.APIKey); err != nil {
					respondEngineError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
			})
			r.Delete("/", func(w http.ResponseWriter, req *http.Request) {
				params.Transfers.CancelCredentialPrompt()
				w.WriteHeader(http.StatusNoContent)
			})
		})

		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

// respondEngineError maps engine sentinels to console API responses.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transfer.ErrUpdateInFlight):
		httpx.Problem(w, http.StatusConflict, "Operation In Progress", "Please wait for the current operation to complete")
	case errors.Is(err, transfer.ErrTransferFinal):
		httpx.Problem(w, http.StatusConflict, "Transfer Finalized", "Only pending transfers can be updated")
	case errors.Is(err, transfer.ErrTransferNotFound), errors.Is(err, transfer.ErrUnknownConfirmation):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, transfer.ErrBadRequest), errors.Is(err, transfer.ErrEmptyCredential):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, transfer.ErrCredentialRequired):
		httpx.Problem(w, http.StatusUnauthorized, "Credential Required", "Please provide a new API key")
	case errors.Is(err, transfer.ErrAuthRetryExhausted):
		httpx.Problem(w, http.StatusUnauthorized, "Auth Retries Exhausted", "Maximum retry attempts reached")
	case errors.Is(err, transfer.ErrNetwork), errors.Is(err, transfer.ErrUpstream):
		httpx.Problem(w, http.StatusBadGateway, "Upstream Error", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
