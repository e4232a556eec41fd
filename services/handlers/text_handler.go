package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

type TextHandler struct {
	textSvc TextServiceInterface
}

func NewTextHandler(textSvc TextServiceInterface) *TextHandler {
	return &TextHandler{textSvc: textSvc}
}

// @Summary Upload a text
// @Description Create a text from chunk-tagged content for the authenticated teacher
// @Tags texts
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param createRequest body dto.CreateTextRequest true "Title and chunk-tagged content"
// @Success 201 {object} shared.Response{data=dto.TextResponse}
// @Router /api/v1/texts [post]
func (h *TextHandler) CreateText(c *fiber.Ctx) error {
	var req dto.CreateTextRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	teacherID := c.Locals(shared.UserID).(string)

	resp, err := h.textSvc.CreateText(teacherID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Text created successfully", resp)
}

// @Summary Delete a text
// @Description Remove a text and its chunks
// @Tags texts
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param text_id path string true "Text ID"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/texts/{text_id} [delete]
func (h *TextHandler) DeleteText(c *fiber.Ctx) error {
	textID := c.Params("text_id")

	if err := h.textSvc.DeleteText(textID); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Text deleted successfully", nil)
}

// @Summary List teachers
// @Description List every teacher with published texts available to students
// @Tags texts
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=[]dto.TeacherResponse}
// @Router /api/v1/teachers [get]
func (h *TextHandler) ListTeachers(c *fiber.Ctx) error {
	resp, err := h.textSvc.ListTeachers()
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary List a teacher's texts
// @Description List the texts published by one teacher
// @Tags texts
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param teacher_id path string true "Teacher ID"
// @Success 200 {object} shared.Response{data=[]dto.TextResponse}
// @Router /api/v1/teachers/{teacher_id}/texts [get]
func (h *TextHandler) GetTeacherTexts(c *fiber.Ctx) error {
	teacherID := c.Params("teacher_id")

	resp, err := h.textSvc.GetTeacherTexts(teacherID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary First chunk
// @Description Return the first chunk of a text
// @Tags texts
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param text_id path string true "Text ID"
// @Success 200 {object} shared.Response{data=dto.ChunkResponse}
// @Router /api/v1/texts/{text_id}/chunks/first [get]
func (h *TextHandler) GetFirstChunk(c *fiber.Ctx) error {
	textID := c.Params("text_id")

	resp, err := h.textSvc.GetFirstChunk(textID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Next chunk
// @Description Return the chunk after the given one
// @Tags texts
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param text_id path string true "Text ID"
// @Param chunk_id path string true "Current chunk ID"
// @Success 200 {object} shared.Response{data=dto.ChunkResponse}
// @Router /api/v1/texts/{text_id}/chunks/{chunk_id}/next [get]
func (h *TextHandler) GetNextChunk(c *fiber.Ctx) error {
	textID := c.Params("text_id")
	chunkID := c.Params("chunk_id")

	resp, err := h.textSvc.GetNextChunk(textID, chunkID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
