package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

// AuthService implements passwordless OTP login and a two-phase student
// registration. Attempt counters and pending registrations live in Redis
// keyed by email so every process in a deployment sees the same state.
type AuthService struct {
	appContext.DefaultService

	sqlSvc   *PostgresService
	redisSvc *RedisService
	jwtSvc   *JWTService
	emailSvc *EmailService
}

const AUTH_SVC = "auth_svc"

const (
	MaxOTPAttempts = 3

	otpAttemptTTL   = 15 * time.Minute
	registrationTTL = 15 * time.Minute

	otpLength   = 6
	otpAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.emailSvc = svc.Service(EMAIL_SVC).(*EmailService)
	return nil
}

func otpAttemptKey(email string) string {
	return "otp_attempts:" + email
}

func pendingRegistrationKey(email string) string {
	return "pending_registration:" + email
}

func generateOTP() (string, error) {
	code := make([]byte, otpLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(otpAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = otpAlphabet[n.Int64()]
	}
	return string(code), nil
}

// storeOTP bcrypt-hashes the code into the user's hashed_password column and
// resets the attempt counter.
func (svc *AuthService) storeOTP(ctx context.Context, email, otp string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return shared.NewInternalError(err, "Failed to hash code")
	}

	if err := svc.redisSvc.Delete(ctx, otpAttemptKey(email)); err != nil {
		log.WithError(err).Warn("Failed to reset OTP attempt counter")
	}

	return svc.sqlSvc.UpdateUserPassword(email, string(hashed))
}

// rotateStoredSecret invalidates a consumed OTP by replacing the stored hash
// with the hash of a random secret nobody knows.
func (svc *AuthService) rotateStoredSecret(email string) error {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return svc.sqlSvc.UpdateUserPassword(email, string(hashed))
}

// RequestOTP generates a login code for an existing user and emails it.
func (svc *AuthService) RequestOTP(ctx context.Context, email string) (*dto.OTPRequestedResponse, error) {
	_, err := svc.sqlSvc.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to generate code")
	}

	if err := svc.storeOTP(ctx, email, otp); err != nil {
		return nil, err
	}

	if err := svc.emailSvc.SendLoginCode(email, otp, MaxOTPAttempts); err != nil {
		return nil, shared.NewInternalError(err, "Failed to send login code")
	}

	return &dto.OTPRequestedResponse{
		Message: "OTP sent successfully",
		Note: fmt.Sprintf("You have %d attempts to enter the code correctly. "+
			"If you exceed this, you can request a new code.", MaxOTPAttempts),
	}, nil
}

// VerifyOTP validates the code against the stored hash and issues a JWT. Each
// email gets MaxOTPAttempts tries per code; the counter lives in Redis.
func (svc *AuthService) VerifyOTP(ctx context.Context, email, otp string) (*dto.TokenResponse, error) {
	attempts, err := svc.redisSvc.GetInt(ctx, otpAttemptKey(email))
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to read attempt counter")
	}
	if attempts >= MaxOTPAttempts {
		return nil, shared.NewBadRequestError(nil,
			"Maximum attempts exceeded. Please request a new OTP by calling /api/v1/auth/request-otp")
	}

	user, err := svc.sqlSvc.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewUnauthorizedError(err, "Invalid OTP")
		}
		return nil, svc.sqlSvc.HandleError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(otp)); err != nil {
		count, incErr := svc.redisSvc.Increment(ctx, otpAttemptKey(email), otpAttemptTTL)
		if incErr != nil {
			log.WithError(incErr).Warn("Failed to increment OTP attempt counter")
			count = attempts + 1
		}
		remaining := MaxOTPAttempts - count
		if remaining < 0 {
			remaining = 0
		}
		return nil, shared.NewBadRequestError(err, fmt.Sprintf(
			"Invalid OTP. %d attempts remaining. After %d failed attempts, you'll need to request a new OTP.",
			remaining, MaxOTPAttempts))
	}

	// Consume the code: clear the counter and rotate the stored hash.
	if err := svc.redisSvc.Delete(ctx, otpAttemptKey(email)); err != nil {
		log.WithError(err).Warn("Failed to clear OTP attempt counter")
	}
	if err := svc.rotateStoredSecret(email); err != nil {
		return nil, shared.NewInternalError(err, "Failed to invalidate code")
	}

	isAdmin := svc.isAdmin(user.ID)

	token, err := svc.jwtSvc.ToJWT(user.ID, user.Username, user.IsTeacher, isAdmin)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to issue token")
	}

	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(svc.jwtSvc.AccessTokenDuration.Seconds()),
	}, nil
}

func (svc *AuthService) isAdmin(userID string) bool {
	_, err := svc.sqlSvc.GetActiveAdminPrivilege(userID)
	return err == nil
}

// Me returns the authenticated user's profile.
func (svc *AuthService) Me(userID string) (*dto.UserResponse, error) {
	user, err := svc.sqlSvc.GetUser(userID)
	if err != nil {
		if appErr, ok := shared.GetAppError(err); ok {
			return nil, appErr
		}
		return nil, shared.NewNotFoundError(err, "User not found")
	}

	return &dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		IsTeacher: user.IsTeacher,
		IsAdmin:   svc.isAdmin(user.ID),
	}, nil
}

type pendingRegistration struct {
	Username         string `json:"username"`
	FullName         string `json:"full_name"`
	VerificationCode string `json:"verification_code"`
}

// InitiateRegistration checks the username and email are free, parks the
// registration in Redis under a 15-minute TTL and emails the code.
func (svc *AuthService) InitiateRegistration(ctx context.Context, req dto.InitiateRegistrationRequest) (*dto.OTPRequestedResponse, error) {
	if _, err := svc.sqlSvc.GetUserByUsername(req.Username); err == nil {
		return nil, shared.NewBadRequestError(nil, "Username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svc.sqlSvc.HandleError(err)
	}

	if _, err := svc.sqlSvc.GetUserByEmail(req.Email); err == nil {
		return nil, shared.NewBadRequestError(nil, "Email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svc.sqlSvc.HandleError(err)
	}

	code, err := generateOTP()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to generate verification code")
	}

	pending := pendingRegistration{
		Username:         req.Username,
		FullName:         req.FullName,
		VerificationCode: code,
	}
	if err := svc.redisSvc.Set(ctx, pendingRegistrationKey(req.Email), pending, registrationTTL); err != nil {
		return nil, shared.NewInternalError(err, "Failed to store pending registration")
	}

	if err := svc.emailSvc.SendRegistrationCode(req.Email, req.FullName, code, int(registrationTTL.Minutes())); err != nil {
		return nil, shared.NewInternalError(err, "Failed to send verification email")
	}

	return &dto.OTPRequestedResponse{
		Message: "Registration verification code sent",
		Note:    "Please check your email for the verification code",
	}, nil
}

// CompleteRegistration validates the emailed code and creates the student
// account. Expired registrations age out of Redis and surface as missing.
func (svc *AuthService) CompleteRegistration(ctx context.Context, req dto.CompleteRegistrationRequest) (*dto.UserResponse, error) {
	var pending pendingRegistration
	found, err := svc.redisSvc.GetJSON(ctx, pendingRegistrationKey(req.Email), &pending)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to read pending registration")
	}
	if !found {
		return nil, shared.NewBadRequestError(nil, "No pending registration found or verification code has expired")
	}

	if req.VerificationCode != pending.VerificationCode {
		return nil, shared.NewBadRequestError(nil, "Invalid verification code")
	}

	// Students never log in with a password; seed the column with a random
	// secret so the row is valid until the first OTP overwrites it.
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, shared.NewInternalError(err, "Failed to seed credentials")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to seed credentials")
	}

	now := time.Now()
	user, err := svc.sqlSvc.CreateUser(&model.User{
		Username:       pending.Username,
		Email:          req.Email,
		FullName:       pending.FullName,
		HashedPassword: string(hashed),
		IsTeacher:      false,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	if err := svc.redisSvc.Delete(ctx, pendingRegistrationKey(req.Email)); err != nil {
		log.WithError(err).Warn("Failed to clear pending registration")
	}

	return &dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		IsTeacher: user.IsTeacher,
	}, nil
}

// ==================== MIDDLEWARE ====================

func (svc *AuthService) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token, err := svc.jwtSvc.ExtractTokenFromHeader(authHeader)
		if err != nil {
			return shared.ResponseUnauthorized(c)
		}

		claims, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil || claims.UserID == "" {
			return shared.ResponseUnauthorized(c)
		}

		c.Locals(shared.UserID, claims.UserID)
		c.Locals(shared.Username, claims.Username)
		c.Locals(shared.IsTeacher, claims.IsTeacher)
		c.Locals(shared.IsAdmin, claims.IsAdmin)
		return c.Next()
	}
}

func (svc *AuthService) RequireTeacher() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isTeacher, ok := c.Locals(shared.IsTeacher).(bool); !ok || !isTeacher {
			return shared.ResponseForbidden(c)
		}
		return c.Next()
	}
}

func (svc *AuthService) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isAdmin, ok := c.Locals(shared.IsAdmin).(bool); !ok || !isAdmin {
			return shared.ResponseForbidden(c)
		}
		return c.Next()
	}
}
