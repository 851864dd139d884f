package jobs

import (
	"context"

	"github.com/stockpoint-erp/stockpoint-erp/internal/transfer"
)

// Notifier bridges the movement document workflow to the job queue. It
// satisfies the transfer service's notifier port.
type Notifier struct {
	client *Client
}

// NewNotifier constructs a Notifier over the queue client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

var _ transfer.NotifierPort = (*Notifier)(nil)

// NotifyApprovalRequest enqueues an approval-request task for the approver.
func (n *Notifier) NotifyApprovalRequest(ctx context.Context, req transfer.ApprovalRequest) error {
	_, err := n.client.EnqueueApprovalRequest(ctx, ApprovalRequestPayload{
		FormID:            req.FormID,
		Number:            req.Number,
		DocumentType:      req.DocumentType,
		RequestApprovalTo: req.RequestApprovalTo,
	})
	return err
}
