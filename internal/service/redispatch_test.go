package service

import (
	"context"
	"testing"

	"openlet/internal/cache"
	"openlet/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRedispatch_ReleasesClaimAndPublishes(t *testing.T) {
	repo := new(MockQuizRecordRepository)
	pub := new(MockChangePublisher)
	claims := newMemCache()

	rec := recordAt(domain.StatusProcessingOCR, 2, domain.InputRefs{ImageRefs: []string{"a.png"}})
	key := cache.DispatchClaimKey(rec.ID, 2, string(StageOCR))
	require.NoError(t, claims.Set(context.Background(), key, "taken", 0))

	repo.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.Before == domain.StatusUploading && ev.After == domain.StatusProcessingOCR && ev.Version == 2
	})).Return(nil).Once()

	event, err := Redispatch(context.Background(), repo, claims, pub, rec.ID)

	require.NoError(t, err)
	assert.Equal(t, rec.ID, event.RecordID)
	_, err = claims.Get(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	pub.AssertExpectations(t)
}

func TestRedispatch_RejectsStatusesWithoutStage(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusUploading, domain.StatusReady, domain.StatusError} {
		repo := new(MockQuizRecordRepository)
		pub := new(MockChangePublisher)
		rec := recordAt(status, 4, domain.InputRefs{ImageRefs: []string{"a.png"}})
		repo.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)

		_, err := Redispatch(context.Background(), repo, newMemCache(), pub, rec.ID)

		assert.True(t, domain.IsCode(err, domain.ErrInvalidInput), status)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	}
}
