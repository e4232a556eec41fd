package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

type VocabHandler struct {
	chatSvc ChatServiceInterface
}

func NewVocabHandler(chatSvc ChatServiceInterface) *VocabHandler {
	return &VocabHandler{chatSvc: chatSvc}
}

// @Summary Vocabulary chat
// @Description Ask the tutor a free-form vocabulary question
// @Tags vocab
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param chatRequest body dto.VocabChatRequest true "Prompt"
// @Success 200 {object} shared.Response{data=dto.VocabChatResponse}
// @Router /api/v1/vocab/chat [post]
func (h *VocabHandler) Chat(c *fiber.Ctx) error {
	var req dto.VocabChatRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	reply, err := h.chatSvc.Chat(c.UserContext(), req.Prompt)
	if err != nil {
		return shared.NewInternalError(err, "Failed to get a reply")
	}

	return shared.ResponseOK(c, dto.VocabChatResponse{Reply: reply})
}
