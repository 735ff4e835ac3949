package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/clickit/internal/eventstore"
	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/logfields"
	"git.home.luguber.info/inful/clickit/internal/metrics"
)

const (
	msgFieldsRequired = "All fields are required"
	msgInvalidEmail   = "Invalid email address"
	msgInvalidBody    = "Invalid request body"
	msgThanks         = "Thank you for your message! We will get back to you soon."
	msgSendFailed     = "An error occurred while sending your message. Please try again later."
	msgMethod         = "Method not allowed"
)

const sendTimeout = 15 * time.Second

// MailSender delivers one composed message.
type MailSender interface {
	Send(ctx context.Context, msg Message) error
}

// Archive records submissions and their delivery outcome.
type Archive interface {
	AppendJSON(ctx context.Context, stream, eventType string, v any, metadata map[string]string) error
}

// Event is the transport-neutral request handled by Relay.
type Event struct {
	HTTPMethod string
	Body       string
}

// Response is the transport-neutral result of Handle.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Options configures a Relay.
type Options struct {
	Sender         MailSender
	Brand          string
	SenderEmail    string
	RecipientEmail string
	AllowedOrigin  string
	Archive        Archive          // optional
	Recorder       metrics.Recorder // optional
	Logger         *slog.Logger
}

// Relay validates contact submissions and forwards them to a MailSender.
type Relay struct {
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder
	newID    func() string
}

// New returns a Relay. AllowedOrigin defaults to "*".
func New(opts Options) *Relay {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Relay{opts: opts, logger: logger, recorder: recorder, newID: uuid.NewString}
}

func (r *Relay) headers() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  r.opts.AllowedOrigin,
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Content-Type":                 "application/json",
	}
}

func (r *Relay) respond(status int, res result) Response {
	b, _ := json.Marshal(res)
	return Response{StatusCode: status, Headers: r.headers(), Body: string(b)}
}

// Handle processes one event. It never returns an error: every failure maps to
// a response with CORS headers.
func (r *Relay) Handle(ctx context.Context, ev Event) Response {
	switch ev.HTTPMethod {
	case http.MethodOptions:
		return Response{StatusCode: http.StatusOK, Headers: r.headers()}
	case http.MethodPost:
	default:
		resp := r.respond(http.StatusMethodNotAllowed, result{Error: msgMethod})
		resp.Headers["Allow"] = "POST, OPTIONS"
		return resp
	}

	var sub Submission
	if err := json.Unmarshal([]byte(ev.Body), &sub); err != nil {
		r.logger.Info("Rejected contact submission", logfields.Error(errors.WrapError(err, errors.CategoryValidation, "decode submission").Build()))
		r.recorder.IncSubmission(metrics.SubmissionInvalid)
		return r.respond(http.StatusBadRequest, result{Error: msgInvalidBody})
	}
	sub = sub.trimmed()
	if reason := sub.Validate(); reason != "" {
		r.logger.Info("Rejected contact submission", slog.String("reason", reason))
		r.recorder.IncSubmission(metrics.SubmissionInvalid)
		return r.respond(http.StatusBadRequest, result{Error: reason})
	}

	id := r.newID()
	meta := map[string]string{"recipient": r.opts.RecipientEmail}
	r.archive(ctx, id, eventstore.TypeSubmissionReceived, sub, meta)

	msg := Compose(sub, r.opts.Brand, r.opts.SenderEmail, r.opts.RecipientEmail)
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := r.opts.Sender.Send(sendCtx, msg); err != nil {
		cerr := errors.WrapError(err, errors.CategoryMail, "send contact message").
			Retryable().
			WithContext("submission", id).
			Build()
		r.logger.Error("Contact message delivery failed", logfields.RequestID(id), logfields.Recipient(msg.To), logfields.Error(cerr))
		r.recorder.IncSubmission(metrics.SubmissionFailed)
		r.archive(ctx, id, eventstore.TypeSubmissionFailed, map[string]string{"error": err.Error()}, meta)
		return r.respond(http.StatusInternalServerError, result{Error: msgSendFailed})
	}

	r.logger.Info("Contact message delivered", logfields.RequestID(id), logfields.Recipient(msg.To))
	r.recorder.IncSubmission(metrics.SubmissionSent)
	r.archive(ctx, id, eventstore.TypeSubmissionDelivered, map[string]string{"subject": msg.Subject}, meta)
	return r.respond(http.StatusOK, result{Success: true, Message: msgThanks})
}

func (r *Relay) archive(ctx context.Context, id, typ string, v any, meta map[string]string) {
	if r.opts.Archive == nil {
		return
	}
	if err := r.opts.Archive.AppendJSON(ctx, id, typ, v, meta); err != nil {
		r.logger.Warn("Failed to archive submission event", logfields.RequestID(id), logfields.Kind(typ), logfields.Error(err))
	}
}
