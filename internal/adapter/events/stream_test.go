package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"openlet/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var occurred = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEvent() domain.ChangeEvent {
	return domain.ChangeEvent{
		RecordID:   "01HXQUIZ",
		Before:     domain.StatusUploading,
		After:      domain.StatusProcessingOCR,
		Version:    2,
		OccurredAt: occurred,
	}
}

func sampleValues() map[string]interface{} {
	return map[string]interface{}{
		"record_id":   "01HXQUIZ",
		"before":      "uploading",
		"after":       "processing_ocr",
		"version":     "2",
		"occurred_at": "2026-03-01T12:00:00Z",
	}
}

func TestStreamPublisher_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	pub := NewStreamPublisher(db, "quiz-changes")

	args := &redis.XAddArgs{Stream: "quiz-changes", Values: encodeEvent(sampleEvent())}

	mock.ExpectXAdd(args).SetVal("1-0")
	assert.NoError(t, pub.Publish(context.Background(), sampleEvent()))

	mock.ExpectXAdd(args).SetErr(errors.New("READONLY"))
	err := pub.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "01HXQUIZ")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(sampleValues())
	require.NoError(t, err)
	assert.Equal(t, sampleEvent(), ev)

	missing := sampleValues()
	delete(missing, "record_id")
	_, err = decodeEvent(missing)
	assert.Error(t, err)

	badVersion := sampleValues()
	badVersion["version"] = "two"
	_, err = decodeEvent(badVersion)
	assert.Error(t, err)
}

func newSubscriber(db *redis.Client) *StreamSubscriber {
	return NewStreamSubscriber(db, SubscriberConfig{
		Stream:   "quiz-changes",
		Group:    "pipeline",
		Consumer: "worker-1",
	}, zap.NewNop())
}

func claimArgs(consumer, start string) *redis.XAutoClaimArgs {
	return &redis.XAutoClaimArgs{
		Stream:   "quiz-changes",
		Group:    "pipeline",
		Consumer: consumer,
		MinIdle:  20 * time.Minute,
		Start:    start,
		Count:    10,
	}
}

func readArgs(id string, block time.Duration) *redis.XReadGroupArgs {
	return &redis.XReadGroupArgs{
		Group:    "pipeline",
		Consumer: "worker-1",
		Streams:  []string{"quiz-changes", id},
		Count:    10,
		Block:    block,
	}
}

func TestStreamSubscriber_EnsureGroup(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sub := newSubscriber(db)

	mock.ExpectXGroupCreateMkStream("quiz-changes", "pipeline", "0").SetVal("OK")
	assert.NoError(t, sub.EnsureGroup(context.Background()))

	mock.ExpectXGroupCreateMkStream("quiz-changes", "pipeline", "0").
		SetErr(errors.New("BUSYGROUP Consumer Group name already exists"))
	assert.NoError(t, sub.EnsureGroup(context.Background()))

	mock.ExpectXGroupCreateMkStream("quiz-changes", "pipeline", "0").SetErr(errors.New("WRONGTYPE"))
	assert.Error(t, sub.EnsureGroup(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamSubscriber_Read(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sub := newSubscriber(db)

	bad := sampleValues()
	bad["version"] = "x"
	mock.ExpectXReadGroup(readArgs(">", 5*time.Second)).SetVal([]redis.XStream{{
		Stream: "quiz-changes",
		Messages: []redis.XMessage{
			{ID: "1-0", Values: sampleValues()},
			{ID: "2-0", Values: bad},
		},
	}})

	msgs, err := sub.Read(context.Background(), ">")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1-0", msgs[0].ID)
	assert.NoError(t, msgs[0].Err)
	assert.Equal(t, sampleEvent(), msgs[0].Event)
	assert.Error(t, msgs[1].Err)

	mock.ExpectXReadGroup(readArgs(">", 5*time.Second)).RedisNil()
	msgs, err = sub.Read(context.Background(), ">")
	assert.NoError(t, err)
	assert.Empty(t, msgs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamSubscriber_Run(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sub := newSubscriber(db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock.ExpectXReadGroup(readArgs("0", -1)).SetVal([]redis.XStream{})
	mock.ExpectXAutoClaim(claimArgs("worker-1", "0-0")).SetVal(nil, "0-0")
	mock.ExpectXReadGroup(readArgs(">", 5*time.Second)).SetVal([]redis.XStream{{
		Stream:   "quiz-changes",
		Messages: []redis.XMessage{{ID: "1-0", Values: sampleValues()}},
	}})
	mock.ExpectXAck("quiz-changes", "pipeline", "1-0").SetVal(1)

	var got []domain.ChangeEvent
	err := sub.Run(ctx, func(ctx context.Context, ev domain.ChangeEvent) error {
		got = append(got, ev)
		cancel()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.ChangeEvent{sampleEvent()}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamSubscriber_RunLeavesFailedEntriesPending(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sub := newSubscriber(db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock.ExpectXReadGroup(readArgs("0", -1)).SetVal([]redis.XStream{{
		Stream:   "quiz-changes",
		Messages: []redis.XMessage{{ID: "1-0", Values: sampleValues()}},
	}})

	err := sub.Run(ctx, func(ctx context.Context, ev domain.ChangeEvent) error {
		cancel()
		return errors.New("database unavailable")
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "no XACK for a failed entry")
}

func TestStreamSubscriber_Claim(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sub := newSubscriber(db)

	mock.ExpectXAutoClaim(claimArgs("worker-1", "0-0")).SetVal([]redis.XMessage{
		{ID: "1-0", Values: sampleValues()},
		{ID: "2-0", Values: nil},
	}, "3-0")

	msgs, next, err := sub.Claim(context.Background(), "0-0")
	require.NoError(t, err)
	assert.Equal(t, "3-0", next)
	require.Len(t, msgs, 2)
	assert.Equal(t, sampleEvent(), msgs[0].Event)
	assert.Error(t, msgs[1].Err, "a deleted entry decodes as malformed")

	mock.ExpectXAutoClaim(claimArgs("worker-1", "3-0")).SetErr(errors.New("NOGROUP"))
	_, _, err = sub.Claim(context.Background(), "3-0")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A restarted process runs under a fresh consumer name; it still has to pick
// up what the previous one left unacknowledged.
func TestStreamSubscriber_RunTakesOverAnotherConsumersStaleEntries(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sub := NewStreamSubscriber(db, SubscriberConfig{
		Stream:   "quiz-changes",
		Group:    "pipeline",
		Consumer: "worker-2",
	}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock.ExpectXReadGroup(&redis.XReadGroupArgs{
		Group:    "pipeline",
		Consumer: "worker-2",
		Streams:  []string{"quiz-changes", "0"},
		Count:    10,
		Block:    -1,
	}).SetVal([]redis.XStream{})
	mock.ExpectXAutoClaim(claimArgs("worker-2", "0-0")).SetVal([]redis.XMessage{
		{ID: "1-0", Values: sampleValues()},
	}, "0-0")
	mock.ExpectXAck("quiz-changes", "pipeline", "1-0").SetVal(1)

	var got []domain.ChangeEvent
	err := sub.Run(ctx, func(ctx context.Context, ev domain.ChangeEvent) error {
		got = append(got, ev)
		cancel()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.ChangeEvent{sampleEvent()}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
