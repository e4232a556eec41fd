package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

type SessionHandler struct {
	sessionSvc SessionServiceInterface
}

func NewSessionHandler(sessionSvc SessionServiceInterface) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// @Summary Conversation history
// @Description Return the ordered transcript of a reading session
// @Tags sessions
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param session_id path string true "Session ID"
// @Success 200 {object} shared.Response{data=dto.ConversationHistoryResponse}
// @Router /api/v1/sessions/{session_id}/history [get]
func (h *SessionHandler) GetHistory(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	messages, err := h.sessionSvc.GetConversationHistory(sessionID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, dto.ConversationHistoryResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}

// @Summary Complete a session
// @Description Mark the student's reading session completed
// @Tags sessions
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param session_id path string true "Session ID"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/sessions/{session_id}/complete [post]
func (h *SessionHandler) CompleteSession(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	userID := c.Locals(shared.UserID).(string)

	if err := h.sessionSvc.CompleteSession(sessionID, userID); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Session completed", nil)
}
