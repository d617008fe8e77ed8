package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/monastery360/agent/internal/models"
	"github.com/monastery360/agent/internal/prompts"
)

const defaultNATSConcurrency = 32

type NATSOptions struct {
	URL         string
	Subject     string
	ServiceName string
	// Timeout bounds both the connection attempt and each request.
	Timeout time.Duration
	// MaxConcurrent bounds the requests handled at once.
	MaxConcurrent int
}

// NATSTransport answers chat requests over NATS request/reply. Requests are
// handled concurrently, up to MaxConcurrent at a time.
type NATSTransport struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	opts    NATSOptions
	handler ChatHandler
	logger  *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	sem      *semaphore.Weighted
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func NewNATSTransport(opts NATSOptions, handler ChatHandler, logger *zap.Logger) (*NATSTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger = logger.Named("nats")

	conn, err := nats.Connect(opts.URL,
		nats.Name(opts.ServiceName),
		nats.Timeout(opts.Timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", zap.String("url", opts.URL))
	return newNATSTransport(conn, opts, handler, logger), nil
}

func newNATSTransport(conn *nats.Conn, opts NATSOptions, handler ChatHandler, logger *zap.Logger) *NATSTransport {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultNATSConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NATSTransport{
		conn:    conn,
		opts:    opts,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
}

// Start subscribes in a queue group named after the service so replicas
// share the load.
func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.QueueSubscribe(nt.opts.Subject, nt.opts.ServiceName, nt.handleChatRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.opts.Subject, err)
	}
	nt.sub = sub
	nt.logger.Info("subscribed",
		zap.String("subject", nt.opts.Subject),
		zap.Int("max_concurrent", nt.opts.MaxConcurrent))
	return nil
}

// Run subscribes and blocks until ctx is cancelled, then drains.
func (nt *NATSTransport) Run(ctx context.Context) error {
	if err := nt.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return nt.Close()
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	nt.dispatch(msg.Data, msg.Respond)
}

// dispatch hands one request to a worker goroutine. It blocks while
// MaxConcurrent requests are in flight, which leaves further messages
// queued in the subscription.
func (nt *NATSTransport) dispatch(data []byte, reply func([]byte) error) {
	nt.mu.Lock()
	if nt.closed {
		nt.mu.Unlock()
		nt.logger.Debug("dropping request received during shutdown")
		return
	}
	nt.inflight.Add(1)
	nt.mu.Unlock()

	if err := nt.sem.Acquire(nt.ctx, 1); err != nil {
		nt.inflight.Done()
		return
	}

	go func() {
		defer nt.inflight.Done()
		defer nt.sem.Release(1)

		ctx, cancel := context.WithTimeout(nt.ctx, nt.opts.Timeout)
		defer cancel()

		if err := reply(nt.process(ctx, data)); err != nil {
			nt.logger.Error("failed to send response", zap.Error(err))
		}
	}()
}

// process decodes a ChatRequest, runs the pipeline and encodes the reply.
func (nt *NATSTransport) process(ctx context.Context, data []byte) []byte {
	var req models.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		nt.logger.Warn("invalid request payload", zap.Error(err))
		return nt.errorResponse(models.ErrorParseError)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nt.errorResponse(models.ErrorParseError)
	}

	nt.logger.Debug("processing chat request", zap.String("session_id", req.SessionID))

	resp := nt.handler.HandleMessage(ctx, req)
	if resp == nil {
		return nt.errorResponse(models.ErrorInternal)
	}
	return nt.encode(resp.ToChatResponse())
}

func (nt *NATSTransport) errorResponse(code string) []byte {
	return nt.encode(&models.ChatResponse{
		Reply:     prompts.ErrorMessage,
		ErrorCode: &code,
	})
}

func (nt *NATSTransport) encode(resp *models.ChatResponse) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		nt.logger.Error("failed to marshal response", zap.Error(err))
		code := models.ErrorInternal
		data, _ = json.Marshal(&models.ChatResponse{Reply: prompts.ErrorMessage, ErrorCode: &code})
	}
	return data
}

// Close stops taking requests, gives in-flight ones up to Timeout to
// finish, cancels whatever is left and drains the connection.
func (nt *NATSTransport) Close() error {
	nt.mu.Lock()
	if nt.closed {
		nt.mu.Unlock()
		return nil
	}
	nt.closed = true
	nt.mu.Unlock()

	if nt.sub != nil {
		if err := nt.sub.Unsubscribe(); err != nil {
			nt.logger.Warn("failed to unsubscribe", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		nt.inflight.Wait()
		close(done)
	}()
	timer := time.NewTimer(nt.opts.Timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		nt.logger.Warn("cancelling in-flight requests")
		nt.cancel()
		<-done
	}
	nt.cancel()

	if nt.conn == nil {
		return nil
	}
	if err := nt.conn.Drain(); err != nil {
		nt.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	nt.logger.Info("NATS connection closed")
	return nil
}
