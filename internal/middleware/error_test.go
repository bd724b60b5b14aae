package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"openlet/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", domain.NewValidationError("imageUrls or pdfUrl is required"), http.StatusBadRequest, codeValidation},
		{"invalid input", domain.NewInvalidInputError("unsupported model"), http.StatusBadRequest, "INVALID_INPUT"},
		{"not found", domain.NewRecordNotFoundError("x"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid transition", domain.NewInvalidTransitionError(domain.StatusReady, domain.StatusProcessingOCR), http.StatusConflict, "INVALID_TRANSITION"},
		{"stale write", domain.NewStaleWriteError("x", domain.StatusUploading, 1), http.StatusConflict, "STALE_WRITE"},
		{"llm", domain.NewLLMServiceError(errors.New("status 502")), http.StatusServiceUnavailable, "LLM_SERVICE_ERROR"},
		{"internal", domain.NewInternalError("boom", errors.New("db")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"fiber", fiber.NewError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "HTTP_ERROR"},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantBody, body.Code)
			assert.Equal(t, tt.wantCode, body.Status)
		})
	}
}
