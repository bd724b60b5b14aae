// Package events carries record change events over a Redis stream.
package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"openlet/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldRecordID   = "record_id"
	fieldBefore     = "before"
	fieldAfter      = "after"
	fieldVersion    = "version"
	fieldOccurredAt = "occurred_at"
)

// StreamPublisher appends change events to a stream with XADD.
type StreamPublisher struct {
	client redis.Cmdable
	stream string
}

func NewStreamPublisher(client redis.Cmdable, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: encodeEvent(event),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish change for quiz %s: %w", event.RecordID, err)
	}
	return nil
}

func encodeEvent(e domain.ChangeEvent) []interface{} {
	return []interface{}{
		fieldRecordID, e.RecordID,
		fieldBefore, string(e.Before),
		fieldAfter, string(e.After),
		fieldVersion, strconv.FormatInt(e.Version, 10),
		fieldOccurredAt, e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEvent(values map[string]interface{}) (domain.ChangeEvent, error) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}

	e := domain.ChangeEvent{
		RecordID: str(fieldRecordID),
		Before:   domain.Status(str(fieldBefore)),
		After:    domain.Status(str(fieldAfter)),
	}
	if e.RecordID == "" {
		return e, fmt.Errorf("change event has no %s", fieldRecordID)
	}
	v, err := strconv.ParseInt(str(fieldVersion), 10, 64)
	if err != nil {
		return e, fmt.Errorf("change event for %s has bad version: %w", e.RecordID, err)
	}
	e.Version = v
	if ts := str(fieldOccurredAt); ts != "" {
		if e.OccurredAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return e, fmt.Errorf("change event for %s has bad timestamp: %w", e.RecordID, err)
		}
	}
	return e, nil
}

// Message is one delivered stream entry.
type Message struct {
	ID    string
	Event domain.ChangeEvent
	Err   error
}

// SubscriberConfig names the consumer group member reading the stream.
// Entries left pending by any group member for longer than ClaimIdle are
// taken over every ClaimInterval.
type SubscriberConfig struct {
	Stream        string
	Group         string
	Consumer      string
	Count         int64
	Block         time.Duration
	ClaimIdle     time.Duration
	ClaimInterval time.Duration
}

// StreamSubscriber reads change events through a consumer group.
type StreamSubscriber struct {
	client redis.Cmdable
	cfg    SubscriberConfig
	logger *zap.Logger
}

func NewStreamSubscriber(client redis.Cmdable, cfg SubscriberConfig, logger *zap.Logger) *StreamSubscriber {
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = 20 * time.Minute
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = time.Minute
	}
	return &StreamSubscriber{client: client, cfg: cfg, logger: logger}
}

// EnsureGroup creates the stream and group if needed.
func (s *StreamSubscriber) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", s.cfg.Group, err)
	}
	return nil
}

// Read returns entries after id: "0" re-reads this consumer's unacknowledged
// entries without blocking, ">" waits for new ones.
func (s *StreamSubscriber) Read(ctx context.Context, id string) ([]Message, error) {
	block := s.cfg.Block
	if id != ">" {
		block = -1
	}
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, id},
		Count:    s.cfg.Count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var msgs []Message
	for _, st := range streams {
		for _, m := range st.Messages {
			ev, decodeErr := decodeEvent(m.Values)
			msgs = append(msgs, Message{ID: m.ID, Event: ev, Err: decodeErr})
		}
	}
	return msgs, nil
}

// Claim takes over up to Count entries that have been pending for at least
// ClaimIdle, scanning from start. It returns the cursor for the next call;
// "0-0" means the scan is complete.
func (s *StreamSubscriber) Claim(ctx context.Context, start string) ([]Message, string, error) {
	entries, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.cfg.Stream,
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		MinIdle:  s.cfg.ClaimIdle,
		Start:    start,
		Count:    s.cfg.Count,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "0-0", nil
		}
		return nil, "", err
	}

	msgs := make([]Message, 0, len(entries))
	for _, m := range entries {
		ev, decodeErr := decodeEvent(m.Values)
		msgs = append(msgs, Message{ID: m.ID, Event: ev, Err: decodeErr})
	}
	return msgs, next, nil
}

func (s *StreamSubscriber) Ack(ctx context.Context, ids ...string) error {
	return s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, ids...).Err()
}

// Handler processes one event. Returning an error leaves the entry pending.
type Handler func(ctx context.Context, event domain.ChangeEvent) error

// Run drains this consumer's pending entries once, then follows new ones
// until ctx is done. Stale entries of the whole group are reclaimed at start
// and every ClaimInterval after that.
func (s *StreamSubscriber) Run(ctx context.Context, handle Handler) error {
	cursor := "0"
	var lastClaim time.Time
	for {
		if ctx.Err() != nil {
			return nil
		}
		if cursor == ">" && time.Since(lastClaim) >= s.cfg.ClaimInterval {
			s.reclaim(ctx, handle)
			lastClaim = time.Now()
			continue
		}

		msgs, err := s.Read(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("Failed to read change stream", zap.String("stream", s.cfg.Stream), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if cursor != ">" && len(msgs) == 0 {
			cursor = ">"
			continue
		}

		for _, m := range msgs {
			s.process(ctx, m, handle)
		}
		if cursor != ">" {
			// Entries that fail again are left to reclaim.
			cursor = msgs[len(msgs)-1].ID
		}
	}
}

// reclaim runs one full XAUTOCLAIM scan, handling every entry it takes over.
func (s *StreamSubscriber) reclaim(ctx context.Context, handle Handler) {
	start := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := s.Claim(ctx, start)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("Failed to reclaim stale change events", zap.String("stream", s.cfg.Stream), zap.Error(err))
			}
			return
		}
		if len(msgs) > 0 {
			s.logger.Info("Reclaimed stale change events", zap.String("stream", s.cfg.Stream), zap.Int("count", len(msgs)))
		}
		for _, m := range msgs {
			s.process(ctx, m, handle)
		}
		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

func (s *StreamSubscriber) process(ctx context.Context, m Message, handle Handler) {
	if m.Err != nil {
		// Undecodable entries would be redelivered forever.
		s.logger.Error("Dropping malformed change event", zap.String("entry_id", m.ID), zap.Error(m.Err))
		s.ack(ctx, m.ID)
		return
	}

	if err := handle(ctx, m.Event); err != nil {
		s.logger.Error("Change event handler failed",
			zap.String("entry_id", m.ID),
			zap.String("record_id", m.Event.RecordID),
			zap.Error(err))
		return
	}
	s.ack(ctx, m.ID)
}

func (s *StreamSubscriber) ack(ctx context.Context, id string) {
	// A handled entry is acked even while shutting down.
	if err := s.Ack(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("Failed to ack change event", zap.String("entry_id", id), zap.Error(err))
	}
}

var _ domain.ChangePublisher = (*StreamPublisher)(nil)
