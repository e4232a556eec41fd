package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

type QuestionHandler struct {
	questionSvc QuestionServiceInterface
}

func NewQuestionHandler(questionSvc QuestionServiceInterface) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc}
}

// @Summary Generate a question
// @Description Ask a comprehension question about the chunk the student just read
// @Tags questions
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param generateRequest body dto.GenerateQuestionRequest true "Text and chunk"
// @Success 200 {object} shared.Response{data=dto.QuestionResponse}
// @Router /api/v1/questions/generate [post]
func (h *QuestionHandler) GenerateQuestion(c *fiber.Ctx) error {
	var req dto.GenerateQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	userID := c.Locals(shared.UserID).(string)

	resp, err := h.questionSvc.GenerateQuestion(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Submit an answer
// @Description Grade the student's answer to the most recent question
// @Tags questions
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param answerRequest body dto.SubmitAnswerRequest true "Text, chunk and answer"
// @Success 200 {object} shared.Response{data=dto.AnswerFeedbackResponse}
// @Router /api/v1/questions/answer [post]
func (h *QuestionHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	userID := c.Locals(shared.UserID).(string)

	resp, err := h.questionSvc.SubmitAnswer(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
