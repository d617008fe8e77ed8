package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/monastery360/agent/internal/models"
	"github.com/monastery360/agent/internal/prompts"
)

func newTestNATS(t *testing.T, handler ChatHandler) *NATSTransport {
	t.Helper()
	return newNATSTransport(nil, NATSOptions{
		Subject:       "monastery.agent.chat",
		Timeout:       time.Second,
		MaxConcurrent: 2,
	}, handler, zaptest.NewLogger(t))
}

// slowHandler blocks each request until release is closed or its ctx ends.
type slowHandler struct {
	started chan string
	release chan struct{}
	mu      sync.Mutex
	errs    []error
}

func newSlowHandler() *slowHandler {
	return &slowHandler{started: make(chan string, 8), release: make(chan struct{})}
}

func (h *slowHandler) HandleMessage(ctx context.Context, req models.ChatRequest) *models.AgentResponse {
	h.started <- req.SessionID
	select {
	case <-h.release:
	case <-ctx.Done():
		h.mu.Lock()
		h.errs = append(h.errs, ctx.Err())
		h.mu.Unlock()
	}
	return models.Conversational("done " + req.SessionID)
}

// replies collects what dispatch sends back.
type replies struct {
	ch chan []byte
}

func newReplies() *replies { return &replies{ch: make(chan []byte, 8)} }

func (r *replies) send(data []byte) error {
	r.ch <- data
	return nil
}

func waitStarted(t *testing.T, h *slowHandler) string {
	t.Helper()
	select {
	case id := <-h.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
		return ""
	}
}

func decode(t *testing.T, data []byte) models.ChatResponse {
	t.Helper()
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestNATSProcessChatRequest(t *testing.T) {
	stub := &stubHandler{resp: bookingResponse()}
	nt := newTestNATS(t, stub)

	resp := decode(t, nt.process(context.Background(), []byte(`{"message":"Book 2 tickets","sessionId":"s9"}`)))
	assert.Equal(t, "Booked 2 ticket(s)", resp.Reply)
	require.NotNil(t, resp.Action)
	assert.Equal(t, models.KindBook, *resp.Action)
	assert.Nil(t, resp.ErrorCode)

	require.Len(t, stub.requests, 1)
	assert.Equal(t, "s9", stub.requests[0].SessionID)
}

func TestNATSProcessRejectsBadPayload(t *testing.T) {
	stub := &stubHandler{resp: bookingResponse()}
	nt := newTestNATS(t, stub)

	for _, payload := range []string{`{"message":`, `{"message":""}`, `[]`} {
		resp := decode(t, nt.process(context.Background(), []byte(payload)))
		assert.Equal(t, prompts.ErrorMessage, resp.Reply, "payload %q", payload)
		require.NotNil(t, resp.ErrorCode, "payload %q", payload)
		assert.Equal(t, models.ErrorParseError, *resp.ErrorCode)
		assert.Nil(t, resp.Action)
	}
	assert.Empty(t, stub.requests)
}

func TestNATSProcessNilResponse(t *testing.T) {
	nt := newTestNATS(t, &stubHandler{})
	resp := decode(t, nt.process(context.Background(), []byte(`{"message":"hello"}`)))
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorInternal, *resp.ErrorCode)
}

func TestNewNATSTransportUnreachable(t *testing.T) {
	_, err := NewNATSTransport(NATSOptions{
		URL:     "nats://127.0.0.1:1",
		Subject: "monastery.agent.chat",
		Timeout: 200 * time.Millisecond,
	}, &stubHandler{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNATSCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, newTestNATS(t, &stubHandler{}).Close())
}

func TestNATSHandlesRequestsConcurrently(t *testing.T) {
	h := newSlowHandler()
	nt := newTestNATS(t, h)
	out := newReplies()

	for i := range 2 {
		nt.dispatch([]byte(fmt.Sprintf(`{"message":"hi","sessionId":"s%d"}`, i)), out.send)
	}
	// Both are in the handler at once; a serial loop would never start the second.
	started := []string{waitStarted(t, h), waitStarted(t, h)}
	assert.ElementsMatch(t, []string{"s0", "s1"}, started)

	// A third request waits for a free slot.
	queued := make(chan struct{})
	go func() {
		defer close(queued)
		nt.dispatch([]byte(`{"message":"hi","sessionId":"s2"}`), out.send)
	}()
	select {
	case id := <-h.started:
		t.Fatalf("request %s started beyond the concurrency limit", id)
	case <-time.After(50 * time.Millisecond):
	}

	close(h.release)
	<-queued
	assert.Equal(t, "s2", waitStarted(t, h))

	for range 3 {
		select {
		case data := <-out.ch:
			assert.Contains(t, decode(t, data).Reply, "done s")
		case <-time.After(2 * time.Second):
			t.Fatal("missing reply")
		}
	}
	require.NoError(t, nt.Close())
	assert.Empty(t, h.errs)
}

func TestNATSCloseCancelsInFlightRequests(t *testing.T) {
	h := newSlowHandler()
	nt := newNATSTransport(nil, NATSOptions{
		Subject:       "monastery.agent.chat",
		Timeout:       100 * time.Millisecond,
		MaxConcurrent: 1,
	}, h, zaptest.NewLogger(t))
	out := newReplies()

	nt.dispatch([]byte(`{"message":"hi","sessionId":"stuck"}`), out.send)
	waitStarted(t, h)

	closed := make(chan error, 1)
	go func() { closed <- nt.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return while a request was stuck")
	}

	// The cancelled request still gets its reply before Close returns.
	require.Len(t, out.ch, 1)
	assert.Equal(t, "done stuck", decode(t, <-out.ch).Reply)
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.errs, 1)
	assert.Error(t, h.errs[0])
}

func TestNATSDropsRequestsAfterClose(t *testing.T) {
	stub := &stubHandler{resp: bookingResponse()}
	nt := newTestNATS(t, stub)
	require.NoError(t, nt.Close())
	require.NoError(t, nt.Close())

	out := newReplies()
	nt.dispatch([]byte(`{"message":"Book 2 tickets"}`), out.send)
	assert.Empty(t, out.ch)
	assert.Empty(t, stub.requests)
}
