package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/shared"
)

type AuthHandler struct {
	authSvc AuthServiceInterface
}

func NewAuthHandler(authSvc AuthServiceInterface) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// @Summary Request a login code
// @Description Email a one-time login code to a registered user
// @Tags auth
// @Accept json
// @Produce json
// @Param otpRequest body dto.OTPRequest true "Registered email address"
// @Success 200 {object} shared.Response{data=dto.OTPRequestedResponse}
// @Router /api/v1/auth/request-otp [post]
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req dto.OTPRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.RequestOTP(c.UserContext(), req.Email)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "OTP sent successfully", resp)
}

// @Summary Verify a login code
// @Description Exchange a one-time login code for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param verifyRequest body dto.OTPVerifyRequest true "Email and code"
// @Success 200 {object} shared.Response{data=dto.TokenResponse}
// @Router /api/v1/auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.OTPVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.VerifyOTP(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}

// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.UserResponse}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.authSvc.Me(userID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Start registration
// @Description Reserve a username and email a verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param registrationRequest body dto.InitiateRegistrationRequest true "Registration details"
// @Success 200 {object} shared.Response{data=dto.OTPRequestedResponse}
// @Router /api/v1/auth/initiate-registration [post]
func (h *AuthHandler) InitiateRegistration(c *fiber.Ctx) error {
	var req dto.InitiateRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.InitiateRegistration(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Registration verification code sent", resp)
}

// @Summary Complete registration
// @Description Verify the emailed code and create the student account
// @Tags auth
// @Accept json
// @Produce json
// @Param completeRequest body dto.CompleteRegistrationRequest true "Registration details with verification code"
// @Success 201 {object} shared.Response{data=dto.UserResponse}
// @Router /api/v1/auth/complete-registration [post]
func (h *AuthHandler) CompleteRegistration(c *fiber.Ctx) error {
	var req dto.CompleteRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.CompleteRegistration(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "User registered successfully", resp)
}
