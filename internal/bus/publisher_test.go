package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/domain"
)

type published struct {
	subject string
	payload []byte
	opts    int
}

type fakeStream struct {
	msgs []published
	err  error
}

func (f *fakeStream) Publish(_ context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, payload: payload, opts: len(opts)})
	return &jetstream.PubAck{Stream: "LAUNCHPAD_EVENTS", Sequence: uint64(len(f.msgs))}, nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func tradeEvent() *domain.TradeEvent {
	return &domain.TradeEvent{
		EventBase: domain.At(42, "0xabc", 3),
		Trade: domain.Trade{
			TokenAddress: "0x01",
			Trader:       "0x02",
			Side:         domain.TradeSideBuy,
			AmountIn:     decimal.NewFromInt(10),
			Price:        decimal.NewFromInt(1),
			BlockNumber:  42,
			TxHash:       "0xabc",
			LogIndex:     3,
		},
	}
}

func TestPublisher_Publish(t *testing.T) {
	fs := &fakeStream{}
	p := NewPublisher(fs, "", quietLogger())
	p.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	require.NoError(t, p.Publish(context.Background(), tradeEvent()))
	require.Len(t, fs.msgs, 1)

	msg := fs.msgs[0]
	assert.Equal(t, "launchpad.events.trade", msg.subject)
	assert.Equal(t, 1, msg.opts, "chain events carry a message id")

	var env map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &env))
	assert.Equal(t, "trade", env["type"])
	assert.Equal(t, "0x01", env["token"])
	assert.Equal(t, float64(42), env["blockNumber"])
	assert.Equal(t, float64(1_700_000_000_000), env["timestamp"])
	data, ok := env["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "buy", data["side"])
}

func TestPublisher_MetricsUpdateHasNoMessageID(t *testing.T) {
	fs := &fakeStream{}
	p := NewPublisher(fs, "idx", quietLogger())

	ev := &domain.MetricsUpdateEvent{Metrics: domain.TokenMetrics{TokenAddress: "0x01"}}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, fs.msgs, 1)
	assert.Equal(t, "idx.metrics_update", fs.msgs[0].subject)
	assert.Equal(t, 0, fs.msgs[0].opts)
}

func TestPublisher_HandleSwallowsErrors(t *testing.T) {
	fs := &fakeStream{err: errors.New("no responders")}
	p := NewPublisher(fs, "", quietLogger())

	assert.Error(t, p.Publish(context.Background(), tradeEvent()))
	assert.NoError(t, p.Handle(context.Background(), tradeEvent()))
}

// stalledStream never acknowledges; it returns only when ctx ends.
type stalledStream struct {
	hadDeadline bool
}

func (s *stalledStream) Publish(ctx context.Context, _ string, _ []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	_, s.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestPublisher_HandleIsBoundedByTimeout(t *testing.T) {
	ss := &stalledStream{}
	p := NewPublisher(ss, "", quietLogger())
	p.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	assert.NoError(t, p.Handle(context.Background(), tradeEvent()))
	elapsed := time.Since(start)

	assert.True(t, ss.hadDeadline)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)

	err := p.Publish(context.Background(), tradeEvent())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublisher_SetTimeoutDefault(t *testing.T) {
	p := NewPublisher(&fakeStream{}, "", quietLogger())
	assert.Equal(t, DefaultPublishTimeout, p.timeout)

	p.SetTimeout(0)
	assert.Equal(t, DefaultPublishTimeout, p.timeout)

	p.SetTimeout(time.Second)
	assert.Equal(t, time.Second, p.timeout)
}

func TestMessageID(t *testing.T) {
	id := MessageID(tradeEvent())
	assert.Len(t, id, 64)
	assert.Equal(t, id, MessageID(tradeEvent()))

	other := tradeEvent()
	other.Pos.LogIndex = 4
	assert.NotEqual(t, id, MessageID(other))
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "LAUNCHPAD_EVENTS", StreamName("launchpad.events"))
	assert.Equal(t, "IDX_V2", StreamName("idx-v2"))
}
