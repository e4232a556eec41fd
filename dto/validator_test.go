package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPVerifyRequestValidation(t *testing.T) {
	valid := OTPVerifyRequest{Email: "student@example.com", OTP: "a1B2c3"}
	assert.NoError(t, valid.Validate())

	tooShort := OTPVerifyRequest{Email: "student@example.com", OTP: "a1B"}
	assert.Error(t, tooShort.Validate())

	badChars := OTPVerifyRequest{Email: "student@example.com", OTP: "a1B2c!"}
	assert.Error(t, badChars.Validate())

	badEmail := OTPVerifyRequest{Email: "not-an-email", OTP: "a1B2c3"}
	assert.Error(t, badEmail.Validate())
}

func TestInitiateRegistrationRequestValidation(t *testing.T) {
	valid := InitiateRegistrationRequest{
		Username: "john_doe", Email: "john@example.com", FullName: "John Doe",
	}
	assert.NoError(t, valid.Validate())

	badUsername := InitiateRegistrationRequest{
		Username: "jo", Email: "john@example.com", FullName: "John Doe",
	}
	assert.Error(t, badUsername.Validate())

	spaced := InitiateRegistrationRequest{
		Username: "john doe", Email: "john@example.com", FullName: "John Doe",
	}
	assert.Error(t, spaced.Validate())
}

func TestCreateTextRequestValidation(t *testing.T) {
	valid := CreateTextRequest{Title: "The Sea", Content: "<chunk>hello</chunk>"}
	assert.NoError(t, valid.Validate())

	empty := CreateTextRequest{Title: "", Content: ""}
	err := empty.Validate()
	require.Error(t, err)

	resp := CreateValidationErrorResponse(err)
	assert.Equal(t, 400, resp.Code)
	assert.Len(t, resp.Errors, 2)
}

func TestSubmitTestRequestValidation(t *testing.T) {
	valid := SubmitTestRequest{TextID: "t1", Answers: map[string]string{"1": "a"}}
	assert.NoError(t, valid.Validate())

	noAnswers := SubmitTestRequest{TextID: "t1", Answers: map[string]string{}}
	assert.Error(t, noAnswers.Validate())
}
