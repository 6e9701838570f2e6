package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/idhash"
	"launchpad-indexer/internal/observability"
)

// DefaultPublishTimeout bounds one publish when no timeout is configured.
const DefaultPublishTimeout = 2 * time.Second

// StreamPublisher is the subset of jetstream.JetStream used by Publisher.
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Envelope is the message body published for every event.
type Envelope struct {
	Type        domain.EventType `json:"type"`
	Token       string           `json:"token,omitempty"`
	BlockNumber uint64           `json:"blockNumber,omitempty"`
	TxHash      string           `json:"txHash,omitempty"`
	LogIndex    uint             `json:"logIndex"`
	Data        any              `json:"data"`
	Timestamp   int64            `json:"timestamp"`
}

// Publisher publishes events to <prefix>.<event_type>.
// Chain events carry a message id derived from their position so the
// stream's duplicate window drops replays of the same log.
type Publisher struct {
	js      StreamPublisher
	prefix  string
	timeout time.Duration
	now     func() time.Time
	logger  *logrus.Entry
}

// NewPublisher creates a publisher. An empty prefix uses DefaultSubjectPrefix.
func NewPublisher(js StreamPublisher, prefix string, logger *logrus.Entry) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{
		js:      js,
		prefix:  prefix,
		timeout: DefaultPublishTimeout,
		now:     time.Now,
		logger:  logger.WithField("component", "bus"),
	}
}

// SetTimeout changes the per-publish deadline. Non-positive values restore the default.
func (p *Publisher) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultPublishTimeout
	}
	p.timeout = d
}

// Subject returns the subject an event type is published on.
func (p *Publisher) Subject(t domain.EventType) string {
	return fmt.Sprintf("%s.%s", p.prefix, t)
}

// Publish marshals the event and publishes it, waiting at most the
// configured timeout for the stream acknowledgement.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	pos := ev.Position()
	env := Envelope{
		Type:        ev.Type(),
		Token:       domain.TokenAddressOf(ev),
		BlockNumber: pos.BlockNumber,
		TxHash:      pos.TxHash,
		LogIndex:    pos.LogIndex,
		Data:        ev.Data(),
		Timestamp:   p.now().UnixMilli(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type(), err)
	}

	var opts []jetstream.PublishOpt
	if pos.TxHash != "" {
		opts = append(opts, jetstream.WithMsgID(MessageID(ev)))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.js.Publish(ctx, p.Subject(ev.Type()), data, opts...); err != nil {
		observability.RecordBusPublishError()
		return fmt.Errorf("publish %s: %w", p.Subject(ev.Type()), err)
	}
	return nil
}

// Handle publishes the event. Failures are logged and not returned:
// downstream consumers can rebuild from storage.
func (p *Publisher) Handle(ctx context.Context, ev domain.Event) error {
	if err := p.Publish(ctx, ev); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"event": ev.Type(),
			"block": ev.Position().BlockNumber,
		}).Warn("outbound publish failed")
	}
	return nil
}

// MessageID returns the deduplication id of a chain event.
func MessageID(ev domain.Event) string {
	pos := ev.Position()
	return idhash.ComputeEventID(string(ev.Type()), domain.TokenAddressOf(ev), pos.TxHash, pos.LogIndex)
}
