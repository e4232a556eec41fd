package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"

	"github.com/student-reader/reader_api/services/handlers"
	"github.com/student-reader/reader_api/shared"
)

type HttpService struct {
	context.DefaultService

	authSvc       *AuthService
	textSvc       *TextService
	sessionSvc    *ReadingSessionService
	questionSvc   *QuestionService
	testSvc       *TestService
	adminSvc      *AdminService
	aiSvc         *AIService
	monitoringSvc *MonitoringService

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.textSvc = svc.Service(TEXT_SVC).(*TextService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*ReadingSessionService)
	svc.questionSvc = svc.Service(QUESTION_SVC).(*QuestionService)
	svc.testSvc = svc.Service(TEST_SVC).(*TestService)
	svc.adminSvc = svc.Service(ADMIN_SVC).(*AdminService)
	svc.aiSvc = svc.Service(AI_SVC).(*AIService)
	svc.monitoringSvc, _ = svc.Service(MONITORING_SVC).(*MonitoringService)

	app := fiber.New(fiber.Config{
		ErrorHandler: svc.handleError,
		JSONEncoder:  shared.JSONEncoder,
		JSONDecoder:  shared.JSONDecoder,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if svc.monitoringSvc != nil {
		app.Use(MonitoringMiddleware(svc.monitoringSvc))
	}

	app.Get("/ping", svc.ping)
	app.Get("/swagger/*", swagger.HandlerDefault)

	svc.registerRoutes(app)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	svc.server = app

	log.Info().Int("port", svc.port).Msg("HTTP server started")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) registerRoutes(app *fiber.App) {
	authHandler := handlers.NewAuthHandler(svc.authSvc)
	textHandler := handlers.NewTextHandler(svc.textSvc)
	sessionHandler := handlers.NewSessionHandler(svc.sessionSvc)
	questionHandler := handlers.NewQuestionHandler(svc.questionSvc)
	testHandler := handlers.NewTestHandler(svc.testSvc)
	adminHandler := handlers.NewAdminHandler(svc.adminSvc)
	vocabHandler := handlers.NewVocabHandler(svc.aiSvc)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	auth := v1.Group("/auth")
	auth.Post("/request-otp", authHandler.RequestOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/initiate-registration", authHandler.InitiateRegistration)
	auth.Post("/complete-registration", authHandler.CompleteRegistration)
	auth.Get("/me", svc.authSvc.RequiredAuth(), authHandler.Me)

	authed := v1.Group("", svc.authSvc.RequiredAuth())

	authed.Post("/texts", svc.authSvc.RequireTeacher(), textHandler.CreateText)
	authed.Delete("/texts/:text_id", svc.authSvc.RequireTeacher(), textHandler.DeleteText)
	authed.Get("/teachers", textHandler.ListTeachers)
	authed.Get("/teachers/:teacher_id/texts", textHandler.GetTeacherTexts)
	authed.Get("/texts/:text_id/chunks/first", textHandler.GetFirstChunk)
	authed.Get("/texts/:text_id/chunks/:chunk_id/next", textHandler.GetNextChunk)

	authed.Post("/questions/generate", questionHandler.GenerateQuestion)
	authed.Post("/questions/answer", questionHandler.SubmitAnswer)

	authed.Get("/sessions/:session_id/history", sessionHandler.GetHistory)
	authed.Post("/sessions/:session_id/complete", sessionHandler.CompleteSession)

	authed.Post("/test/generate", testHandler.GenerateTest)
	authed.Post("/test/submit", testHandler.SubmitTest)
	authed.Get("/completions", svc.authSvc.RequireTeacher(), testHandler.SearchCompletions)

	authed.Post("/vocab/chat", vocabHandler.Chat)

	admin := v1.Group("/admin", svc.authSvc.RequiredAuth(), svc.authSvc.RequireAdmin())
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/privileges", adminHandler.GrantAdmin)
	admin.Delete("/privileges", adminHandler.RevokeAdmin)
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled request error")
	return shared.ResponseInternalError(c, err)
}
