package dto

import "time"

// CreateQuizRequest represents the request body for creating a quiz record
// @Description Either imageUrls or pdfUrl must be provided. imageUrl is accepted for older clients.
type CreateQuizRequest struct {
	ImageURLs                  []string `json:"imageUrls,omitempty"`
	PDFURL                     string   `json:"pdfUrl,omitempty"`
	ImageURL                   string   `json:"imageUrl,omitempty"`
	OCRModel                   string   `json:"ocrModel,omitempty"`
	QuestionModel              string   `json:"questionModel,omitempty"`
	DeleteFilesAfterProcessing *bool    `json:"deleteFilesAfterProcessing,omitempty"`
}

// CreateQuizResponse is returned once the record exists in the uploading state
type CreateQuizResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// QuestionResponse is one multiple-choice question
type QuestionResponse struct {
	ID          int      `json:"id"`
	Content     string   `json:"content"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
	Type        string   `json:"type"`
}

// QuizRecordResponse represents a quiz record in the API response
// @Description Quiz record with its pipeline status
type QuizRecordResponse struct {
	ID                         string             `json:"id"`
	Status                     string             `json:"status"`
	Version                    int64              `json:"version"`
	ImageURLs                  []string           `json:"imageUrls,omitempty"`
	PDFURL                     string             `json:"pdfUrl,omitempty"`
	InputType                  string             `json:"inputType,omitempty"`
	OCRModel                   string             `json:"ocrModel,omitempty"`
	QuestionModel              string             `json:"questionModel,omitempty"`
	DeleteFilesAfterProcessing bool               `json:"deleteFilesAfterProcessing"`
	PageCount                  int                `json:"pageCount,omitempty"`
	Title                      string             `json:"title,omitempty"`
	Description                string             `json:"description,omitempty"`
	Genre                      string             `json:"genre,omitempty"`
	Topics                     []string           `json:"topics,omitempty"`
	Questions                  []QuestionResponse `json:"questions,omitempty"`
	ErrorMessage               string             `json:"errorMessage,omitempty"`
	CreatedAt                  time.Time          `json:"createdAt"`
	UpdatedAt                  time.Time          `json:"updatedAt"`
}
