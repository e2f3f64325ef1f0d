package venue

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/events"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 60 * time.Second
	readDeadline       = 90 * time.Second
	pingInterval       = 30 * time.Second
)

// Stream consumes the venue's websocket event feed. The connection can drop
// at any time; Run reconnects with capped exponential backoff, unlimited
// attempts, and calls OnReconnect before delivering post-gap events so the
// engine can reconcile state first.
type Stream struct {
	url    string
	apiKey string

	// OnEvent receives every decoded event in arrival order.
	OnEvent func(ev *events.Event)
	// OnReconnect runs after a connection is (re-)established and before any
	// event from the new connection is delivered.
	OnReconnect func(ctx context.Context) error

	dial func(ctx context.Context, url string) (*websocket.Conn, error)
}

func NewStream(cfg Config) *Stream {
	return &Stream{
		url:    cfg.StreamURL,
		apiKey: cfg.APIKey,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

// Run blocks until ctx is cancelled, maintaining the stream connection.
func (s *Stream) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx, s.url)
		if err != nil {
			attempt++
			delay := backoffDelay(attempt)
			logger.WithError(err).
				WithField("retry_in", delay).
				Warn("Venue stream dial failed")
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return
			}
		}

		attempt = 0
		logger.Info("Venue stream connected")

		if s.OnReconnect != nil {
			if err := s.OnReconnect(ctx); err != nil {
				// Reconciliation must succeed before events flow; drop the
				// connection and retry the whole sequence.
				logger.WithError(err).Error("Post-connect reconciliation failed, reconnecting")
				conn.Close()
				continue
			}
		}

		s.consume(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		logger.Warn("Venue stream disconnected, reconnecting")
	}
}

// consume reads until the connection breaks or ctx is cancelled.
func (s *Stream) consume(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		ev, err := events.Decode(raw)
		if err != nil {
			logger.WithError(err).Warn("Dropping undecodable stream message")
			continue
		}
		if s.OnEvent != nil {
			s.OnEvent(ev)
		}
	}
}

// backoffDelay returns the capped exponential delay with jitter for the n-th
// consecutive failure.
func backoffDelay(attempt int) time.Duration {
	d := float64(reconnectBaseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(reconnectMaxDelay) {
		d = float64(reconnectMaxDelay)
	}
	// Up to 20% jitter to avoid thundering reconnects.
	jitter := 1 + 0.2*rand.Float64()
	return time.Duration(d * jitter)
}
