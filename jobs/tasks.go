package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeApprovalRequest asks an approver to decide on a form.
	TaskTypeApprovalRequest = "approval:request"
	// TaskTypeIdempotencyCleanup prunes stale idempotency keys.
	TaskTypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks. It validates the
// payload and records the dispatch; delivery itself belongs to the mail
// transport configured at the deployment.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Info("send email",
		slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

// ApprovalRequestPayload identifies the form waiting for a decision.
type ApprovalRequestPayload struct {
	FormID            int64  `json:"form_id"`
	Number            string `json:"number"`
	DocumentType      string `json:"document_type"`
	RequestApprovalTo int64  `json:"request_approval_to"`
}

// NewApprovalRequestTask constructs an Asynq task.
func NewApprovalRequestTask(payload ApprovalRequestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeApprovalRequest, data), nil
}

// ApproverDirectory resolves an approver's email address.
type ApproverDirectory interface {
	EmailByUserID(ctx context.Context, userID int64) (string, error)
}

// printer renders human-facing numbers in the notification mails.
var printer = message.NewPrinter(language.English)

// NewApprovalRequestHandler returns the handler for TaskTypeApprovalRequest.
// It resolves the approver's address and forwards a send-email task.
func NewApprovalRequestHandler(directory ApproverDirectory, mailer func(ctx context.Context, payload SendEmailPayload) error) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ApprovalRequestPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		to, err := directory.EmailByUserID(ctx, payload.RequestApprovalTo)
		if err != nil {
			return err
		}
		subject := printer.Sprintf("Approval needed for %s %s", payload.DocumentType, payload.Number)
		body := printer.Sprintf("Form %s (#%d) is waiting for your approval.", payload.Number, payload.FormID)
		return mailer(ctx, SendEmailPayload{To: to, Subject: subject, Body: body})
	}
}
