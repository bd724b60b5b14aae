// Package inference adapts chat-completion providers to domain.InferenceClient.
package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"openlet/internal/domain"
)

var errNoChoices = errors.New("inference response contained no choices")

// DataURL encodes an image for inline transmission.
func DataURL(img domain.ImagePayload) string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = domain.DefaultImageMIMEType
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img.Data))
}

// withTimeout bounds one external call. A zero timeout leaves ctx untouched.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// wrapCallError turns a provider failure into an LLM_SERVICE_ERROR.
func wrapCallError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
		return domain.NewLLMServiceError(fmt.Errorf("inference call timed out after %s: %w", timeout, err))
	}
	return domain.NewLLMServiceError(err)
}

func firstChoice(contents []string) (string, error) {
	if len(contents) == 0 {
		return "", domain.NewLLMServiceError(errNoChoices)
	}
	return strings.TrimSpace(contents[0]), nil
}
