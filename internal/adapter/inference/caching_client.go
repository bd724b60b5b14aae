package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"openlet/internal/cache"
	"openlet/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachingClient memoises extraction results per (model, images) and collapses
// concurrent identical requests. Completions are passed through.
type CachingClient struct {
	next    domain.InferenceClient
	cache   domain.Cache
	ttl     time.Duration
	logger  *zap.Logger
	sfGroup singleflight.Group
}

func NewCachingClient(next domain.InferenceClient, c domain.Cache, ttl time.Duration, logger *zap.Logger) *CachingClient {
	return &CachingClient{next: next, cache: c, ttl: ttl, logger: logger}
}

func (c *CachingClient) ExtractText(ctx context.Context, model string, images ...domain.ImagePayload) (string, error) {
	cacheKey := cache.OCRResultKey(model, hashImages(images))

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && cached != "":
			c.logger.Debug("OCR cache hit", zap.String("cache_key", cacheKey))
			return cached, nil
		case err != nil && !errors.Is(err, domain.ErrCacheMiss):
			c.logger.Warn("OCR cache read failed", zap.String("cache_key", cacheKey), zap.Error(err))
		}
	}

	res, err, _ := c.sfGroup.Do(cacheKey, func() (interface{}, error) {
		text, err := c.next.ExtractText(ctx, model, images...)
		if err != nil {
			return "", err
		}
		// Empty text is an error upstream and is never cached.
		if c.cache != nil && text != "" {
			if errSet := c.cache.Set(ctx, cacheKey, text, c.ttl); errSet != nil {
				c.logger.Warn("OCR cache write failed", zap.String("cache_key", cacheKey), zap.Error(errSet))
			}
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}

	text, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type from singleflight.Do for OCR: %T", res)
	}
	return text, nil
}

func (c *CachingClient) Complete(ctx context.Context, model string, userPrompt string) (string, error) {
	return c.next.Complete(ctx, model, userPrompt)
}

func hashImages(images []domain.ImagePayload) string {
	h := sha256.New()
	for _, img := range images {
		h.Write([]byte(img.MIMEType))
		h.Write([]byte{0})
		h.Write(img.Data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

var _ domain.InferenceClient = (*CachingClient)(nil)
