package transfer

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the movement document endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transfer-items", func(r chi.Router) {
		r.Get("/", h.ListTransferItems)
		r.Post("/", h.CreateTransferItem)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTransferItem)
			r.Patch("/", h.UpdateTransferItem)
			r.Delete("/", h.DeleteTransferItem)
			r.Get("/histories", h.TransferItemHistories)
			r.Post("/approve", h.ApproveTransferItem)
			r.Post("/reject", h.RejectTransferItem)
			r.Post("/cancellation-approve", h.ApproveTransferItemCancellation)
			r.Post("/cancellation-reject", h.RejectTransferItemCancellation)
			r.Post("/close", h.CloseTransferItem)
			r.Post("/close-approve", h.ApproveTransferItemClose)
			r.Post("/close-reject", h.RejectTransferItemClose)
		})
	})
	r.Route("/receive-items", func(r chi.Router) {
		r.Get("/", h.ListReceiveItems)
		r.Post("/", h.CreateReceiveItem)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetReceiveItem)
			r.Patch("/", h.UpdateReceiveItem)
			r.Delete("/", h.DeleteReceiveItem)
			r.Get("/histories", h.ReceiveItemHistories)
			r.Post("/approve", h.ApproveReceiveItem)
			r.Post("/reject", h.RejectReceiveItem)
			r.Post("/cancellation-approve", h.ApproveReceiveItemCancellation)
			r.Post("/cancellation-reject", h.RejectReceiveItemCancellation)
		})
	})
	r.Route("/transfer-item-customers", func(r chi.Router) {
		r.Get("/", h.ListCustomerTransfers)
		r.Post("/", h.CreateCustomerTransfer)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCustomerTransfer)
			r.Patch("/", h.UpdateCustomerTransfer)
			r.Delete("/", h.DeleteCustomerTransfer)
			r.Get("/histories", h.CustomerTransferHistories)
			r.Post("/approve", h.ApproveCustomerTransfer)
			r.Post("/reject", h.RejectCustomerTransfer)
			r.Post("/cancellation-approve", h.ApproveCustomerCancellation)
			r.Post("/cancellation-reject", h.RejectCustomerCancellation)
		})
	})
}
