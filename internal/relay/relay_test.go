package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/clickit/internal/eventstore"
	"git.home.luguber.info/inful/clickit/internal/metrics"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestRelay(sender MailSender) *Relay {
	return New(Options{
		Sender:         sender,
		Brand:          "Click IT",
		SenderEmail:    "noreply@clickit.test",
		RecipientEmail: "owner@clickit.test",
	})
}

func post(t *testing.T, r *Relay, v any) (Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp := r.Handle(t.Context(), Event{HTTPMethod: http.MethodPost, Body: string(body)})
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	return resp, out
}

func valid() Submission {
	return Submission{Name: "Ada", Email: "ada@example.com", Subject: "Hello", Message: "Line one\nLine <two>"}
}

func TestHandle_ValidSubmission(t *testing.T) {
	sender := &fakeSender{}
	resp, out := post(t, newTestRelay(sender), valid())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, msgThanks, out["message"])
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "owner@clickit.test", msg.To)
	assert.Equal(t, "noreply@clickit.test", msg.From)
	assert.Equal(t, "ada@example.com", msg.ReplyTo)
	assert.Equal(t, "Contact Form: Hello - Click IT", msg.Subject)
}

func TestHandle_MissingSubject(t *testing.T) {
	sender := &fakeSender{}
	s := valid()
	s.Subject = "   "
	resp, out := post(t, newTestRelay(sender), s)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "All fields are required", out["error"])
	assert.Empty(t, sender.sent)
}

func TestHandle_InvalidEmail(t *testing.T) {
	sender := &fakeSender{}
	s := valid()
	s.Email = "not-an-email"
	resp, out := post(t, newTestRelay(sender), s)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid email address", out["error"])
	assert.Empty(t, sender.sent)
}

func TestHandle_Preflight(t *testing.T) {
	resp := newTestRelay(&fakeSender{}).Handle(t.Context(), Event{HTTPMethod: http.MethodOptions})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "POST, OPTIONS", resp.Headers["Access-Control-Allow-Methods"])
}

func TestHandle_MalformedBodyAndMethod(t *testing.T) {
	r := newTestRelay(&fakeSender{})

	resp := r.Handle(t.Context(), Event{HTTPMethod: http.MethodPost, Body: "{not json"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body, `"success":false`)

	resp = r.Handle(t.Context(), Event{HTTPMethod: http.MethodGet})
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_SendFailure(t *testing.T) {
	resp, out := post(t, newTestRelay(&fakeSender{err: assert.AnError}), valid())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, msgSendFailed, out["error"])
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
}

func TestHandle_ArchivesAndCounts(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	reg := prometheus.NewRegistry()

	r := New(Options{
		Sender:         &fakeSender{},
		Brand:          "Click IT",
		RecipientEmail: "owner@clickit.test",
		Archive:        store,
		Recorder:       metrics.NewPrometheusRecorder(reg),
	})
	r.newID = func() string { return "sub-1" }

	resp, _ := post(t, r, valid())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events, err := store.GetByStream(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, eventstore.TypeSubmissionReceived, events[0].Type)
	assert.Equal(t, eventstore.TypeSubmissionDelivered, events[1].Type)
	assert.Equal(t, "owner@clickit.test", events[0].Metadata["recipient"])

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "clickit_relay_submissions_total" {
			found = true
			assert.InDelta(t, 1, mf.GetMetric()[0].GetCounter().GetValue(), 0)
		}
	}
	assert.True(t, found)
}

func TestCompose_EscapesHTML(t *testing.T) {
	msg := Compose(valid(), "Click IT", "from@x.test", "to@x.test")
	assert.Contains(t, msg.Text, "New contact form submission from Click IT website:")
	assert.Contains(t, msg.Text, "Line one\nLine <two>")
	assert.Contains(t, msg.HTML, "Line one<br>Line &lt;two&gt;")
	assert.False(t, strings.Contains(msg.HTML, "<two>"))
}
