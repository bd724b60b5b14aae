package handler

import (
	"openlet/internal/domain"
	"openlet/internal/dto"
	"openlet/internal/logger"
	"openlet/internal/middleware"
	"openlet/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizRecordHandler handles quiz record HTTP requests
type QuizRecordHandler struct {
	service service.RecordService
}

// NewQuizRecordHandler creates a new QuizRecordHandler instance
func NewQuizRecordHandler(service service.RecordService) *QuizRecordHandler {
	return &QuizRecordHandler{
		service: service,
	}
}

// Register mounts the quiz record routes on router.
func (h *QuizRecordHandler) Register(router fiber.Router) {
	quizzes := router.Group("/quizzes")
	quizzes.Post("/", middleware.RequireJSON(), h.CreateQuiz)
	quizzes.Post("/:id/process", middleware.ValidateRecordID(), h.StartProcessing)
	quizzes.Get("/:id", middleware.ValidateRecordID(), h.GetQuiz)
}

// CreateQuiz godoc
// @Summary Create a quiz record
// @Description Stores the uploaded input references and returns the new record in the uploading state
// @Tags quizzes
// @Accept json
// @Produce json
// @Param request body dto.CreateQuizRequest true "Input references and model choices"
// @Success 201 {object} dto.CreateQuizResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /quizzes [post]
func (h *QuizRecordHandler) CreateQuiz(c *fiber.Ctx) error {
	var req dto.CreateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Get().Warn("Failed to parse create quiz request", zap.Error(err))
		return domain.NewInvalidInputError("invalid request body")
	}

	resp, err := h.service.CreateRecord(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// StartProcessing godoc
// @Summary Start the pipeline for a quiz record
// @Tags quizzes
// @Produce json
// @Param id path string true "Record ID"
// @Success 202 {object} dto.QuizRecordResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /quizzes/{id}/process [post]
func (h *QuizRecordHandler) StartProcessing(c *fiber.Ctx) error {
	id := c.Locals(middleware.RecordIDLocal).(string)

	resp, err := h.service.StartProcessing(c.UserContext(), id)
	if err != nil {
		if resp == nil {
			return err
		}
		// Committed but not announced; the record can be redispatched.
		logger.Get().Error("Processing started without a change event", zap.String("record_id", id), zap.Error(err))
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// GetQuiz godoc
// @Summary Get a quiz record
// @Tags quizzes
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} dto.QuizRecordResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizRecordHandler) GetQuiz(c *fiber.Ctx) error {
	id := c.Locals(middleware.RecordIDLocal).(string)

	resp, err := h.service.GetRecord(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
