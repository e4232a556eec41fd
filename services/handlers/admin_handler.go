package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

type AdminHandler struct {
	adminSvc AdminServiceInterface
}

func NewAdminHandler(adminSvc AdminServiceInterface) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// @Summary List users
// @Description List every registered user with their admin flag
// @Tags admin
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Success 200 {object} shared.Response{data=[]dto.UserResponse}
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	resp, err := h.adminSvc.ListUsers()
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Grant admin privileges
// @Description Grant or reactivate admin privileges for a user
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param grantRequest body dto.PrivilegeRequest true "User and reason"
// @Success 201 {object} shared.Response{data=dto.AdminDetailsResponse}
// @Router /api/v1/admin/privileges [post]
func (h *AdminHandler) GrantAdmin(c *fiber.Ctx) error {
	var req dto.PrivilegeRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	grantedByID := c.Locals(shared.UserID).(string)

	resp, err := h.adminSvc.GrantAdmin(grantedByID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Admin privileges granted", resp)
}

// @Summary Revoke admin privileges
// @Description Deactivate a user's admin privileges
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Param revokeRequest body dto.RevokePrivilegeRequest true "User to revoke"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/admin/privileges [delete]
func (h *AdminHandler) RevokeAdmin(c *fiber.Ctx) error {
	var req dto.RevokePrivilegeRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	revokedByID := c.Locals(shared.UserID).(string)

	if err := h.adminSvc.RevokeAdmin(revokedByID, req); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Admin privileges revoked", nil)
}
