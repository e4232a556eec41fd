package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

type TestHandler struct {
	testSvc TestServiceInterface
}

func NewTestHandler(testSvc TestServiceInterface) *TestHandler {
	return &TestHandler{testSvc: testSvc}
}

// @Summary Generate a final test
// @Description Build a comprehension test from sampled excerpts of the text
// @Tags test
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param generateRequest body dto.GenerateTestRequest true "Text to test on"
// @Success 200 {object} shared.Response{data=dto.TestQuestionsResponse}
// @Router /api/v1/test/generate [post]
func (h *TestHandler) GenerateTest(c *fiber.Ctx) error {
	var req dto.GenerateTestRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	userID := c.Locals(shared.UserID).(string)

	resp, err := h.testSvc.GenerateTest(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Submit test answers
// @Description Grade the student's final test and record their best attempt
// @Tags test
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param submitRequest body dto.SubmitTestRequest true "Answers keyed by question id"
// @Success 200 {object} shared.Response{data=dto.TestResultResponse}
// @Router /api/v1/test/submit [post]
func (h *TestHandler) SubmitTest(c *fiber.Ctx) error {
	var req dto.SubmitTestRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	userID := c.Locals(shared.UserID).(string)

	resp, err := h.testSvc.SubmitTest(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary List completions
// @Description List student completion records for teachers, newest first
// @Tags completions
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param student_name query string false "Filter by student name, case-insensitive substring"
// @Param text_title query string false "Filter by text title, case-insensitive substring"
// @Param passed query bool false "Filter by pass/fail"
// @Param from_date query string false "Completed on or after, YYYY-MM-DD"
// @Param to_date query string false "Completed on or before, YYYY-MM-DD"
// @Param skip query int false "Rows to skip"
// @Param limit query int false "Max rows, default 50"
// @Success 200 {object} shared.Response{data=[]dto.CompletionResponse}
// @Router /api/v1/completions [get]
func (h *TestHandler) SearchCompletions(c *fiber.Ctx) error {
	var req dto.CompletionFilterRequest
	if err := c.QueryParser(&req); err != nil {
		return err
	}

	resp, err := h.testSvc.SearchCompletions(req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
