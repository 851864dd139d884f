package transfer

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/journal"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/customers"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/warehouses"
	"github.com/stockpoint-erp/stockpoint-erp/internal/platform/httpx"
)

// Handler exposes the movement document API.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(service *Service, validate *validator.Validate, logger *slog.Logger) *Handler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, validate: validate, logger: logger}
}

func (h *Handler) listFilter(r *http.Request) ListFilter {
	q := r.URL.Query()
	filter := ListFilter{}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if raw := q.Get("approval_status"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			status := forms.Status(v)
			filter.ApprovalStatus = &status
		}
	}
	return filter
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("transfer request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, status, title, "")
		return
	}
	httpx.Problem(w, status, title, err.Error())
}

// classify maps domain errors onto HTTP statuses. Business rule violations
// surface as 422 with the rule's user-facing message.
func classify(err error) (int, string) {
	var (
		stockErr     *ledger.StockNotEnoughError
		accountErr   *journal.AccountNotConfiguredError
		warehouseErr *WarehouseMismatchError
		validateErrs validator.ValidationErrors
	)
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, forms.ErrNotFound),
		errors.Is(err, items.ErrNotFound),
		errors.Is(err, warehouses.ErrNotFound),
		errors.Is(err, customers.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.As(err, &stockErr),
		errors.As(err, &accountErr),
		errors.As(err, &warehouseErr),
		errors.As(err, &validateErrs),
		errors.Is(err, httpx.ErrValidation),
		errors.Is(err, ErrNoLines),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrBalanceMismatch),
		errors.Is(err, ErrQuantityOverStock),
		errors.Is(err, ErrQuantityOverTransfer),
		errors.Is(err, ErrItemNotInTransfer),
		errors.Is(err, ErrLotAllocationEmpty),
		errors.Is(err, ErrTransferNotApproved),
		errors.Is(err, journal.ErrItemAccountNotSet),
		errors.Is(err, warehouses.ErrNoDistributionWarehouse):
		return http.StatusUnprocessableEntity, "Validation Failed"
	case errors.Is(err, ErrAlreadyApproved),
		errors.Is(err, ErrAlreadyRejected),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrAlreadyClosed),
		errors.Is(err, ErrCancellationNotRequested),
		errors.Is(err, ErrCloseNotRequested),
		errors.Is(err, ErrEditReferencedByReceive),
		errors.Is(err, ErrEditFormClosed),
		errors.Is(err, ErrDeleteFormDone),
		errors.Is(err, ErrCloseFormDone),
		errors.Is(err, forms.ErrNumberTaken):
		return http.StatusUnprocessableEntity, "Unprocessable"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

func (h *Handler) decodeValid(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return h.validate.Struct(target)
}

// ListTransferItems handles GET /transfer-items.
func (h *Handler) ListTransferItems(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListTransferItems(r.Context(), h.listFilter(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": docs})
}

// CreateTransferItem handles POST /transfer-items.
func (h *Handler) CreateTransferItem(w http.ResponseWriter, r *http.Request) {
	var in CreateTransferInput
	if err := h.decodeValid(r, &in); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	doc, err := h.service.CreateTransfer(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": doc})
}

// GetTransferItem handles GET /transfer-items/{id}.
func (h *Handler) GetTransferItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	doc, err := h.service.GetTransferItem(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// UpdateTransferItem handles PATCH /transfer-items/{id}.
func (h *Handler) UpdateTransferItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	var in UpdateTransferInput
	if err := h.decodeValid(r, &in.CreateTransferInput); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	in.ID = id
	doc, err := h.service.UpdateTransfer(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// DeleteTransferItem handles DELETE /transfer-items/{id}; it requests
// cancellation rather than removing the row.
func (h *Handler) DeleteTransferItem(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return nil, h.service.DeleteTransfer(r.Context(), in)
	})
}

// ApproveTransferItem handles POST /transfer-items/{id}/approve.
func (h *Handler) ApproveTransferItem(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.ApproveTransfer(r.Context(), in)
	})
}

// RejectTransferItem handles POST /transfer-items/{id}/reject.
func (h *Handler) RejectTransferItem(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.RejectTransfer(r.Context(), in)
	})
}

// ApproveTransferItemCancellation handles
// POST /transfer-items/{id}/cancellation-approve.
func (h *Handler) ApproveTransferItemCancellation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.ApproveTransferCancellation(r.Context(), in)
	})
}

// RejectTransferItemCancellation handles
// POST /transfer-items/{id}/cancellation-reject.
func (h *Handler) RejectTransferItemCancellation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.RejectTransferCancellation(r.Context(), in)
	})
}

// CloseTransferItem handles POST /transfer-items/{id}/close.
func (h *Handler) CloseTransferItem(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.CloseTransfer(r.Context(), in)
	})
}

// ApproveTransferItemClose handles POST /transfer-items/{id}/close-approve.
func (h *Handler) ApproveTransferItemClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	var in CloseApproveInput
	if err := h.decodeValid(r, &in); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	in.ID = id
	doc, err := h.service.ApproveTransferClose(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// RejectTransferItemClose handles POST /transfer-items/{id}/close-reject.
func (h *Handler) RejectTransferItemClose(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.RejectTransferClose(r.Context(), in)
	})
}

// TransferItemHistories handles GET /transfer-items/{id}/histories.
func (h *Handler) TransferItemHistories(w http.ResponseWriter, r *http.Request) {
	h.histories(w, r, FormableTypeTransferItem)
}

// ListReceiveItems handles GET /receive-items.
func (h *Handler) ListReceiveItems(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListReceiveItems(r.Context(), h.listFilter(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": docs})
}

// CreateReceiveItem handles POST /receive-items.
func (h *Handler) CreateReceiveItem(w http.ResponseWriter, r *http.Request) {
	var in CreateReceiveInput
	if err := h.decodeValid(r, &in); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	doc, err := h.service.CreateReceive(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": doc})
}

// GetReceiveItem handles GET /receive-items/{id}.
func (h *Handler) GetReceiveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	doc, err := h.service.GetReceiveItem(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// UpdateReceiveItem handles PATCH /receive-items/{id}.
func (h *Handler) UpdateReceiveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	var in UpdateReceiveInput
	if err := h.decodeValid(r, &in.CreateReceiveInput); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	in.ID = id
	doc, err := h.service.UpdateReceive(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// DeleteReceiveItem handles DELETE /receive-items/{id}.
func (h *Handler) DeleteReceiveItem(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return nil, h.service.DeleteReceive(r.Context(), in)
	})
}

// ApproveReceiveItem handles POST /receive-items/{id}/approve.
func (h *Handler) ApproveReceiveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	var in ReceiveApproveInput
	if err := h.decodeValid(r, &in); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	in.ID = id
	doc, err := h.service.ApproveReceive(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// RejectReceiveItem handles POST /receive-items/{id}/reject.
func (h *Handler) RejectReceiveItem(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.RejectReceive(r.Context(), in)
	})
}

// ApproveReceiveItemCancellation handles
// POST /receive-items/{id}/cancellation-approve.
func (h *Handler) ApproveReceiveItemCancellation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.ApproveReceiveCancellation(r.Context(), in)
	})
}

// RejectReceiveItemCancellation handles
// POST /receive-items/{id}/cancellation-reject.
func (h *Handler) RejectReceiveItemCancellation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.RejectReceiveCancellation(r.Context(), in)
	})
}

// ReceiveItemHistories handles GET /receive-items/{id}/histories.
func (h *Handler) ReceiveItemHistories(w http.ResponseWriter, r *http.Request) {
	h.histories(w, r, FormableTypeReceiveItem)
}

// ListCustomerTransfers handles GET /transfer-item-customers.
func (h *Handler) ListCustomerTransfers(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListCustomerTransfers(r.Context(), h.listFilter(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": docs})
}

// CreateCustomerTransfer handles POST /transfer-item-customers.
func (h *Handler) CreateCustomerTransfer(w http.ResponseWriter, r *http.Request) {
	var in CreateCustomerInput
	if err := h.decodeValid(r, &in); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	doc, err := h.service.CreateCustomerTransfer(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"data": doc})
}

// GetCustomerTransfer handles GET /transfer-item-customers/{id}.
func (h *Handler) GetCustomerTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	doc, err := h.service.GetCustomerTransfer(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// UpdateCustomerTransfer handles PATCH /transfer-item-customers/{id}.
func (h *Handler) UpdateCustomerTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	var in UpdateCustomerInput
	if err := h.decodeValid(r, &in.CreateCustomerInput); err != nil {
		h.respondError(w, r, errAsValidation(err))
		return
	}
	in.ID = id
	doc, err := h.service.UpdateCustomerTransfer(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": doc})
}

// DeleteCustomerTransfer handles DELETE /transfer-item-customers/{id}.
func (h *Handler) DeleteCustomerTransfer(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return nil, h.service.DeleteCustomerTransfer(r.Context(), in)
	})
}

// ApproveCustomerTransfer handles POST /transfer-item-customers/{id}/approve.
func (h *Handler) ApproveCustomerTransfer(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.ApproveCustomerTransfer(r.Context(), in)
	})
}

// RejectCustomerTransfer handles POST /transfer-item-customers/{id}/reject.
func (h *Handler) RejectCustomerTransfer(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.RejectCustomerTransfer(r.Context(), in)
	})
}

// ApproveCustomerCancellation handles
// POST /transfer-item-customers/{id}/cancellation-approve.
func (h *Handler) ApproveCustomerCancellation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.ApproveCustomerCancellation(r.Context(), in)
	})
}

// RejectCustomerCancellation handles
// POST /transfer-item-customers/{id}/cancellation-reject.
func (h *Handler) RejectCustomerCancellation(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(in DecisionInput) (any, error) {
		return h.service.RejectCustomerCancellation(r.Context(), in)
	})
}

// CustomerTransferHistories handles GET /transfer-item-customers/{id}/histories.
func (h *Handler) CustomerTransferHistories(w http.ResponseWriter, r *http.Request) {
	h.histories(w, r, FormableTypeCustomer)
}

// decide runs one approve/reject/cancel style endpoint: id from the path, an
// optional reason from the body.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(DecisionInput) (any, error)) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	var in DecisionInput
	if r.Body != nil && r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			h.respondError(w, r, errAsValidation(err))
			return
		}
	}
	in.ID = id
	result, err := fn(in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if result == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id}})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": result})
}

func (h *Handler) histories(w http.ResponseWriter, r *http.Request, formableType string) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, r, ErrNotFound)
		return
	}
	logs, err := h.service.Histories(r.Context(), formableType, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": logs})
}

// errAsValidation folds body decode failures into the validation bucket.
func errAsValidation(err error) error {
	var validateErrs validator.ValidationErrors
	if errors.As(err, &validateErrs) {
		return err
	}
	return errors.Join(httpx.ErrValidation, err)
}
