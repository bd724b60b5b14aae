package service

import (
	"context"
	"fmt"
	"time"

	"openlet/internal/cache"
	"openlet/internal/domain"
)

// Redispatch re-announces the change that put a record into its current
// status, releasing the dispatch claim first so the stage runs again. It is
// the recovery path for a record whose change event was lost.
func Redispatch(ctx context.Context, repo domain.QuizRecordRepository, claims domain.Cache, publisher domain.ChangePublisher, id string) (domain.ChangeEvent, error) {
	record, err := repo.GetByID(ctx, id)
	if err != nil {
		return domain.ChangeEvent{}, err
	}

	before, ok := domain.PreviousStatus(record.Status)
	stage := StageFor(before, record.Status)
	if !ok || stage == StageNone {
		return domain.ChangeEvent{}, domain.NewInvalidInputError(
			fmt.Sprintf("quiz %s is %s; no stage runs from this status", record.ID, record.Status))
	}

	key := cache.DispatchClaimKey(record.ID, record.Version, string(stage))
	if err := claims.Delete(ctx, key); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to release claim %s: %w", key, err)
	}

	event := domain.ChangeEvent{
		RecordID:   record.ID,
		Before:     before,
		After:      record.Status,
		Version:    record.Version,
		OccurredAt: time.Now().UTC(),
	}
	if err := publisher.Publish(ctx, event); err != nil {
		return domain.ChangeEvent{}, err
	}
	return event, nil
}
