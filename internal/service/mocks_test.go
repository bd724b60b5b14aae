package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"openlet/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockQuizRecordRepository ---
type MockQuizRecordRepository struct {
	mock.Mock
}

func (m *MockQuizRecordRepository) Create(ctx context.Context, record *domain.QuizRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockQuizRecordRepository) GetByID(ctx context.Context, id string) (*domain.QuizRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizRecord), args.Error(1)
}

func (m *MockQuizRecordRepository) Update(ctx context.Context, next *domain.QuizRecord, expectedStatus domain.Status, expectedVersion int64) (*domain.QuizRecord, error) {
	args := m.Called(ctx, next, expectedStatus, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizRecord), args.Error(1)
}

// --- MockChangePublisher ---
type MockChangePublisher struct {
	mock.Mock
}

func (m *MockChangePublisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// --- MockStageRunner ---
type MockStageRunner struct {
	mock.Mock
}

func (m *MockStageRunner) Run(ctx context.Context, snapshot *domain.QuizRecord) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// passthroughTxManager runs fn directly.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memCache is an in-memory domain.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

// fakeStore serves objects from memory and records deletions.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failDel error
}

func (s *fakeStore) Fetch(_ context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[ref]
	if !ok {
		return nil, domain.NewStorageError(ref, errors.New("object not found"))
	}
	return data, nil
}

func (s *fakeStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDel != nil {
		return s.failDel
	}
	s.deleted = append(s.deleted, ref)
	return nil
}

// fakeRenderer returns fixed pages.
type fakeRenderer struct {
	pages [][]byte
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, _ []byte, maxPages int) ([][]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if maxPages > 0 && len(r.pages) > maxPages {
		return r.pages[:maxPages], nil
	}
	return r.pages, nil
}

type extractCall struct {
	Model  string
	Images []domain.ImagePayload
}

// fakeInference delegates to the configured funcs and records calls.
type fakeInference struct {
	mu           sync.Mutex
	extractFunc  func(images []domain.ImagePayload) (string, error)
	completeFunc func(prompt string) (string, error)
	extracts     []extractCall
	completes    []string
	models       []string
}

func (f *fakeInference) ExtractText(_ context.Context, model string, images ...domain.ImagePayload) (string, error) {
	f.mu.Lock()
	f.extracts = append(f.extracts, extractCall{Model: model, Images: images})
	f.mu.Unlock()
	return f.extractFunc(images)
}

func (f *fakeInference) Complete(_ context.Context, model string, prompt string) (string, error) {
	f.mu.Lock()
	f.completes = append(f.completes, prompt)
	f.models = append(f.models, model)
	f.mu.Unlock()
	return f.completeFunc(prompt)
}

type transitionCall struct {
	Next            *domain.QuizRecord
	ExpectedStatus  domain.Status
	ExpectedVersion int64
}

// recordingTransitioner captures every Transition and returns err.
type recordingTransitioner struct {
	calls []transitionCall
	err   error
}

func (r *recordingTransitioner) Transition(_ context.Context, next *domain.QuizRecord, expectedStatus domain.Status, expectedVersion int64) (*domain.QuizRecord, error) {
	r.calls = append(r.calls, transitionCall{Next: next, ExpectedStatus: expectedStatus, ExpectedVersion: expectedVersion})
	if r.err != nil {
		return nil, r.err
	}
	stored := next.Clone()
	stored.Version = expectedVersion + 1
	return stored, nil
}

func (r *recordingTransitioner) last() transitionCall {
	return r.calls[len(r.calls)-1]
}

var testCatalog = domain.ModelCatalog{
	Models:               map[string]string{"google/gemini-2.5-flash": "fast", "openai/gpt-4o": "premium"},
	DefaultOCRModel:      "google/gemini-2.5-flash",
	DefaultQuestionModel: "openai/gpt-4o",
}

func recordAt(status domain.Status, version int64, inputs domain.InputRefs) *domain.QuizRecord {
	rec := domain.NewQuizRecord("01HZX3Q9W8C2M7N4P5R6S7T8V9", inputs, "", "", true)
	rec.Status = status
	rec.Version = version
	return rec
}
