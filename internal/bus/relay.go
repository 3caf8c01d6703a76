package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is the NATS subject replicas exchange signals on.
const DefaultSubject = "catalog.invalidate"

// NATSRelay bridges a local Bus to a NATS subject so several replicas
// invalidate each other's views. Local signals are published; remote ones
// are re-emitted locally with SourceRelay. Echoes of our own messages are
// ignored.
type NATSRelay struct {
	bus     *Bus
	conn    *nats.Conn
	subject string
	origin  string
	log     *zap.Logger

	mu          sync.Mutex
	sub         *nats.Subscription
	unsubscribe func()
}

// NewNATSRelay creates a relay with a fresh origin ID.
func NewNATSRelay(b *Bus, conn *nats.Conn, subject string, log *zap.Logger) *NATSRelay {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSRelay{
		bus:     b,
		conn:    conn,
		subject: subject,
		origin:  uuid.NewString(),
		log:     log.Named("relay"),
	}
}

// Origin returns the ID stamped on every published signal.
func (r *NATSRelay) Origin() string { return r.origin }

// Start subscribes to the subject and to the local bus.
func (r *NATSRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}

	sub, err := r.conn.Subscribe(r.subject, r.handleRemote)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.subject, err)
	}
	if err := r.conn.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("failed to flush subscription: %w", err)
	}

	r.sub = sub
	r.unsubscribe = r.bus.Subscribe(r.forward)
	r.log.Info("relay started", zap.String("subject", r.subject), zap.String("origin", r.origin))
	return nil
}

// Stop detaches the relay from both sides.
func (r *NATSRelay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return nil
	}
	r.unsubscribe()
	err := r.sub.Unsubscribe()
	r.sub = nil
	return err
}

func (r *NATSRelay) forward(sig Signal) {
	if sig.Source == SourceRelay {
		return
	}
	sig.Origin = r.origin
	data, err := json.Marshal(sig)
	if err != nil {
		r.log.Error("failed to encode signal", zap.Error(err))
		return
	}
	if err := r.conn.Publish(r.subject, data); err != nil {
		r.log.Warn("failed to publish signal", zap.Error(err))
	}
}

func (r *NATSRelay) handleRemote(msg *nats.Msg) {
	var sig Signal
	if err := json.Unmarshal(msg.Data, &sig); err != nil {
		r.log.Warn("dropping malformed signal", zap.Error(err))
		return
	}
	if sig.Origin == r.origin {
		return
	}
	r.log.Debug("remote invalidation", zap.String("origin", sig.Origin))
	r.bus.Emit(Signal{Origin: sig.Origin, Source: SourceRelay})
}
