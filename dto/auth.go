package dto

// ==================== AUTHENTICATION REQUEST DTOs ====================

type OTPRequest struct {
	Email string `json:"email" validate:"required,email" example:"student@example.com"`
}

func (r OTPRequest) Validate() error {
	return GetValidator().Struct(r)
}

type OTPVerifyRequest struct {
	Email string `json:"email" validate:"required,email" example:"student@example.com"`
	OTP   string `json:"otp" validate:"required,otp_code" example:"a1B2c3"`
}

func (r OTPVerifyRequest) Validate() error {
	return GetValidator().Struct(r)
}

type InitiateRegistrationRequest struct {
	Username string `json:"username" validate:"required,username" example:"johndoe"`
	Email    string `json:"email" validate:"required,email" example:"student@example.com"`
	FullName string `json:"full_name" validate:"required,min=1,max=120" example:"John Doe"`
}

func (r InitiateRegistrationRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CompleteRegistrationRequest struct {
	Username         string `json:"username" validate:"required,username" example:"johndoe"`
	Email            string `json:"email" validate:"required,email" example:"student@example.com"`
	FullName         string `json:"full_name" validate:"required,min=1,max=120" example:"John Doe"`
	VerificationCode string `json:"verification_code" validate:"required,otp_code" example:"a1B2c3"`
}

func (r CompleteRegistrationRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ==================== AUTHENTICATION RESPONSE DTOs ====================

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type OTPRequestedResponse struct {
	Message string `json:"message"`
	Note    string `json:"note,omitempty"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	IsTeacher bool   `json:"is_teacher"`
	IsAdmin   bool   `json:"is_admin"`
}
