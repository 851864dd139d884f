package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/platform/httpx"
)

// Handler exposes read-only stock queries.
type Handler struct {
	ledger *Ledger
	items  *items.Repository
	logger *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(ledger *Ledger, items *items.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: ledger, items: items, logger: logger}
}

// MountRoutes mounts the stock query endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/current-stock", h.CurrentStock)
}

// CurrentStock handles GET /current-stock. item_id and warehouse_id are
// required; production_number, expiry_date (2006-01-02) and as_of (RFC3339)
// narrow the lot and the point in time.
func (h *Handler) CurrentStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID, err := strconv.ParseInt(q.Get("item_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "item_id is required")
		return
	}
	warehouseID, err := strconv.ParseInt(q.Get("warehouse_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "warehouse_id is required")
		return
	}
	item, err := h.items.Get(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, items.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("load item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	var opts LotOptions
	if pid := q.Get("production_number"); pid != "" {
		opts.ProductionNumber = &pid
	}
	if raw := q.Get("expiry_date"); raw != "" {
		ed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "expiry_date must be 2006-01-02")
			return
		}
		opts.ExpiryDate = &ed
	}
	var asOf time.Time
	if raw := q.Get("as_of"); raw != "" {
		if asOf, err = time.Parse(time.RFC3339, raw); err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "as_of must be RFC3339")
			return
		}
	}
	stock, err := h.ledger.CurrentStock(r.Context(), item, asOf, warehouseID, opts)
	if err != nil {
		h.logger.Error("current stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"item_id":      item.ID,
		"warehouse_id": warehouseID,
		"stock":        stock,
		"unit":         item.Unit,
	}})
}
