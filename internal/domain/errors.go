package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Pipeline specific errors
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrStaleWrite        ErrorCode = "STALE_WRITE"
	ErrLLMServiceError   ErrorCode = "LLM_SERVICE_ERROR"
	ErrStorageError      ErrorCode = "STORAGE_ERROR"
	ErrEmptyResult       ErrorCode = "EMPTY_RESULT"
)

// Messages written to QuizRecord.ErrorMessage by the stages.
const (
	MsgNoInput         = "No input found"
	MsgNoExtractedText = "No extracted text found"
	MsgEmptyOCR        = "OCR returned empty text"
	MsgNoQuestions     = "Failed to parse questions from model output"
	MsgEmptyPDF        = "PDF contains no pages or could not be processed"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err wraps a DomainError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(ErrNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(ErrInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(ErrInternal, message, err)
}

func NewRecordNotFoundError(id string) *DomainError {
	return NewError(ErrNotFound, fmt.Sprintf("Quiz record not found with ID: %s", id), nil)
}

func NewInvalidTransitionError(from, to Status) *DomainError {
	return NewError(ErrInvalidTransition, fmt.Sprintf("cannot move quiz from %s to %s", from, to), nil)
}

func NewStaleWriteError(id string, status Status, version int64) *DomainError {
	return NewError(ErrStaleWrite,
		fmt.Sprintf("quiz %s is no longer at status %s version %d", id, status, version), nil)
}

// NewLLMServiceError keeps the transport message verbatim so it can be surfaced on the record.
func NewLLMServiceError(err error) *DomainError {
	return NewError(ErrLLMServiceError, err.Error(), err)
}

func NewStorageError(ref string, err error) *DomainError {
	return NewError(ErrStorageError, fmt.Sprintf("failed to access %s", ref), err)
}

func NewEmptyResultError(message string) *DomainError {
	return NewError(ErrEmptyResult, message, nil)
}

// FailureMessage is the text recorded in QuizRecord.ErrorMessage for err.
// Errors that wrap a transport cause are reported by their own message only once.
func FailureMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Code == ErrLLMServiceError {
			return domainErr.Message
		}
		return domainErr.Error()
	}
	return err.Error()
}
