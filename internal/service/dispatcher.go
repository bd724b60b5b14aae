package service

import (
	"context"
	"fmt"
	"time"

	"openlet/internal/cache"
	"openlet/internal/domain"

	"go.uber.org/zap"
)

// Stage names one unit of pipeline work bound to a status value.
type Stage string

const (
	StageNone       Stage = ""
	StageOCR        Stage = "ocr"
	StageGeneration Stage = "generation"
)

// stageStatus is the status whose entry triggers each stage.
var stageStatus = map[Stage]domain.Status{
	StageOCR:        domain.StatusProcessingOCR,
	StageGeneration: domain.StatusGeneratingQuiz,
}

// StageFor is the transition guard. A stage runs only when the record has just
// entered that stage's status.
func StageFor(before, after domain.Status) Stage {
	for stage, status := range stageStatus {
		if after == status && before != status {
			return stage
		}
	}
	return StageNone
}

// StageRunner processes one record snapshot. It records business failures on the
// record itself and returns an error only when the outcome could not be written.
type StageRunner interface {
	Run(ctx context.Context, snapshot *domain.QuizRecord) error
}

// Outcome reports what Dispatch did with a change.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRan       Outcome = "ran"
)

// Dispatcher turns record changes into stage invocations, at most once per
// (record, version, stage).
type Dispatcher struct {
	stages   map[Stage]StageRunner
	claims   domain.Cache
	claimTTL time.Duration
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher. claims holds the per-version dispatch claims.
func NewDispatcher(ocr, generation StageRunner, claims domain.Cache, claimTTL time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		stages: map[Stage]StageRunner{
			StageOCR:        ocr,
			StageGeneration: generation,
		},
		claims:   claims,
		claimTTL: claimTTL,
		logger:   logger,
	}
}

// Dispatch runs the stage the change calls for, if any.
func (d *Dispatcher) Dispatch(ctx context.Context, change domain.Change) (Outcome, error) {
	if change.After == nil {
		return OutcomeIgnored, nil
	}
	var before domain.Status
	if change.Before != nil {
		before = change.Before.Status
	}

	stage := StageFor(before, change.After.Status)
	runner, ok := d.stages[stage]
	if stage == StageNone || !ok || runner == nil {
		return OutcomeIgnored, nil
	}

	log := d.logger.With(
		zap.String("record_id", change.After.ID),
		zap.Int64("version", change.After.Version),
		zap.String("stage", string(stage)),
	)

	key := cache.DispatchClaimKey(change.After.ID, change.After.Version, string(stage))
	claimed, err := d.claims.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), d.claimTTL)
	if err != nil {
		return "", fmt.Errorf("failed to claim %s: %w", key, err)
	}
	if !claimed {
		log.Debug("Stage already claimed for this version")
		return OutcomeDuplicate, nil
	}

	log.Info("Dispatching stage")
	if err := runner.Run(ctx, change.After.Clone()); err != nil {
		// Release the claim so a redelivery can retry.
		if delErr := d.claims.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			log.Warn("Failed to release dispatch claim", zap.Error(delErr))
		}
		return "", err
	}
	return OutcomeRan, nil
}
