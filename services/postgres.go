package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	driver   string
	database string
}

const POSTGRES_SVC = "postgres_svc"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

// NewPostgresServiceFromDB wraps an already opened gorm handle. Used by tests
// to run the query layer against an in-memory sqlite database.
func NewPostgresServiceFromDB(db *gorm.DB) *PostgresService {
	return &PostgresService{db: db}
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.driver = os.Getenv("DB_DRIVER")
	if ds.driver == "" {
		ds.driver = "postgres"
	}

	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" && ds.driver == "postgres" {
		// Fallback to individual environment variables
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "reader_api"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		timezone := os.Getenv("DB_TIMEZONE")
		if timezone == "" {
			timezone = "UTC"
		}

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbname, port, sslmode, timezone)
	}

	if ds.database == "" && ds.driver == "sqlite" {
		ds.database = "student_reader.db"
	}

	return ds.DefaultService.Configure(ctx)
}

func (ds *PostgresService) Start() (err error) {
	// Retry connection with exponential backoff
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(ds.dialector(), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					log.Println("Successfully connected to database")
					break
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	err = ds.db.AutoMigrate(Models()...)
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *PostgresService) dialector() gorm.Dialector {
	if ds.driver == "sqlite" {
		return sqlite.Open(ds.database)
	}
	return postgres.Open(ds.database)
}

// Models lists every persisted table, in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.AdminPrivilege{},
		&model.Text{},
		&model.TextChunk{},
		&model.ReadingSession{},
		&model.ReadingCompletion{},
	}
}

func (ds *PostgresService) Shutdown() {
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound // 404
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict // 409
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest // 400
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError // 500
		errorType = "TRANSACTION_ERROR"
	default:
		// Check for PostgreSQL-specific errors
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			statusCode = http.StatusConflict // 409
			errorType = "UNIQUE_CONSTRAINT"
		} else if strings.Contains(err.Error(), "relation") && strings.Contains(err.Error(), "does not exist") {
			statusCode = http.StatusInternalServerError // 500
			errorType = "SCHEMA_ERROR"
		} else if strings.Contains(err.Error(), "connection refused") {
			statusCode = http.StatusServiceUnavailable // 503
			errorType = "DATABASE_CONNECTION_ERROR"
		} else {
			statusCode = http.StatusInternalServerError // 500
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return shared.NewAppError(statusCode, err, errorType)
}

// IsNotFound reports whether err is (or wraps) a record-not-found failure.
func (ds *PostgresService) IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ==================== USERS ====================

func (ds *PostgresService) GetUser(userID string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &user, nil
}

func (ds *PostgresService) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *PostgresService) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	if err := ds.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *PostgresService) CreateUser(user *model.User) (*model.User, error) {
	id, _ := uuid.NewV7()
	user.ID = id.String()
	if err := ds.db.Create(user).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return user, nil
}

func (ds *PostgresService) UpdateUser(user *model.User) error {
	if err := ds.db.Save(user).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) UpdateUserPassword(email, hashedPassword string) error {
	result := ds.db.Model(&model.User{}).
		Where("email = ?", email).
		Update("hashed_password", hashedPassword)
	if result.Error != nil {
		return ds.HandleError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ds.HandleError(gorm.ErrRecordNotFound)
	}
	return nil
}

func (ds *PostgresService) GetTeachers() ([]model.User, error) {
	var teachers []model.User
	if err := ds.db.Where("is_teacher = ?", true).Order("full_name ASC").Find(&teachers).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return teachers, nil
}

// ==================== ADMIN PRIVILEGES ====================

func (ds *PostgresService) GetActiveAdminPrivilege(userID string) (*model.AdminPrivilege, error) {
	var privilege model.AdminPrivilege
	if err := ds.db.Where("user_id = ? AND is_active = ?", userID, true).First(&privilege).Error; err != nil {
		return nil, err
	}
	return &privilege, nil
}

func (ds *PostgresService) GetAdminPrivilege(userID string) (*model.AdminPrivilege, error) {
	var privilege model.AdminPrivilege
	if err := ds.db.Where("user_id = ?", userID).First(&privilege).Error; err != nil {
		return nil, err
	}
	return &privilege, nil
}

func (ds *PostgresService) AnyAdminExists() (bool, error) {
	var count int64
	if err := ds.db.Model(&model.AdminPrivilege{}).Count(&count).Error; err != nil {
		return false, ds.HandleError(err)
	}
	return count > 0, nil
}

func (ds *PostgresService) CreateAdminPrivilege(privilege *model.AdminPrivilege) (*model.AdminPrivilege, error) {
	id, _ := uuid.NewV7()
	privilege.ID = id.String()
	if err := ds.db.Create(privilege).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return privilege, nil
}

func (ds *PostgresService) UpdateAdminPrivilege(privilege *model.AdminPrivilege) error {
	if err := ds.db.Save(privilege).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// GetUsersWithAdminStatus returns every user joined with their active admin flag.
func (ds *PostgresService) GetUsersWithAdminStatus() ([]model.User, map[string]bool, error) {
	var users []model.User
	if err := ds.db.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, nil, ds.HandleError(err)
	}

	var privileges []model.AdminPrivilege
	if err := ds.db.Where("is_active = ?", true).Find(&privileges).Error; err != nil {
		return nil, nil, ds.HandleError(err)
	}

	adminIDs := make(map[string]bool, len(privileges))
	for _, p := range privileges {
		adminIDs[p.UserID] = true
	}
	return users, adminIDs, nil
}

// ==================== TEXTS & CHUNKS ====================

func (ds *PostgresService) CreateText(text *model.Text, chunks []model.TextChunk) (*model.Text, error) {
	id, _ := uuid.NewV7()
	text.ID = id.String()

	err := ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(text).Error; err != nil {
			return err
		}
		for i := range chunks {
			chunkID, _ := uuid.NewV7()
			chunks[i].ID = chunkID.String()
			chunks[i].TextID = text.ID
		}
		if len(chunks) > 0 {
			if err := tx.Create(&chunks).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return text, nil
}

func (ds *PostgresService) GetText(textID string) (*model.Text, error) {
	var text model.Text
	if err := ds.db.Where("id = ?", textID).First(&text).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &text, nil
}

func (ds *PostgresService) GetTextsByTeacher(teacherID string) ([]model.Text, error) {
	var texts []model.Text
	if err := ds.db.Where("teacher_id = ?", teacherID).Order("created_at DESC").Find(&texts).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return texts, nil
}

// DeleteText removes the text and its chunks in one transaction.
func (ds *PostgresService) DeleteText(textID string) error {
	err := ds.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("text_id = ?", textID).Delete(&model.TextChunk{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", textID).Delete(&model.Text{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return ds.HandleError(err)
	}
	return nil
}

func (ds *PostgresService) GetChunk(chunkID string) (*model.TextChunk, error) {
	var chunk model.TextChunk
	if err := ds.db.Where("id = ?", chunkID).First(&chunk).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &chunk, nil
}

func (ds *PostgresService) GetChunkBySequence(textID string, sequenceNumber int) (*model.TextChunk, error) {
	var chunk model.TextChunk
	if err := ds.db.Where("text_id = ? AND sequence_number = ?", textID, sequenceNumber).First(&chunk).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &chunk, nil
}

func (ds *PostgresService) GetChunksByText(textID string) ([]model.TextChunk, error) {
	var chunks []model.TextChunk
	if err := ds.db.Where("text_id = ?", textID).Order("sequence_number ASC").Find(&chunks).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return chunks, nil
}

func (ds *PostgresService) CountChunks(textID string) (int64, error) {
	var count int64
	if err := ds.db.Model(&model.TextChunk{}).Where("text_id = ?", textID).Count(&count).Error; err != nil {
		return 0, ds.HandleError(err)
	}
	return count, nil
}

// ==================== READING SESSIONS ====================

func (ds *PostgresService) GetReadingSession(sessionID string) (*model.ReadingSession, error) {
	var session model.ReadingSession
	if err := ds.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (ds *PostgresService) GetActiveReadingSession(userID, textID string) (*model.ReadingSession, error) {
	var session model.ReadingSession
	err := ds.db.Where("user_id = ? AND text_id = ? AND is_completed = ?", userID, textID, false).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (ds *PostgresService) CreateReadingSession(session *model.ReadingSession) (*model.ReadingSession, error) {
	id, _ := uuid.NewV7()
	session.ID = id.String()
	if err := ds.db.Create(session).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return session, nil
}

func (ds *PostgresService) UpdateReadingSession(session *model.ReadingSession) error {
	if err := ds.db.Save(session).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// CompleteReadingSession flips is_completed for the session owned by userID.
// A miss (unknown id or wrong owner) affects zero rows and is not an error.
func (ds *PostgresService) CompleteReadingSession(sessionID, userID string) error {
	result := ds.db.Model(&model.ReadingSession{}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Update("is_completed", true)
	if result.Error != nil {
		return ds.HandleError(result.Error)
	}
	return nil
}

// DeleteExpiredReadingSessions removes every session past its expiry,
// completed or not. Returns the number of rows removed.
func (ds *PostgresService) DeleteExpiredReadingSessions(now time.Time) (int64, error) {
	result := ds.db.Where("expires_at < ?", now).Delete(&model.ReadingSession{})
	if result.Error != nil {
		return 0, ds.HandleError(result.Error)
	}
	return result.RowsAffected, nil
}

// ==================== READING COMPLETIONS ====================

func (ds *PostgresService) GetReadingCompletion(studentID, textID string) (*model.ReadingCompletion, error) {
	var completion model.ReadingCompletion
	if err := ds.db.Where("student_id = ? AND text_id = ?", studentID, textID).First(&completion).Error; err != nil {
		return nil, err
	}
	return &completion, nil
}

func (ds *PostgresService) CreateReadingCompletion(completion *model.ReadingCompletion) (*model.ReadingCompletion, error) {
	id, _ := uuid.NewV7()
	completion.ID = id.String()
	if err := ds.db.Create(completion).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return completion, nil
}

func (ds *PostgresService) UpdateReadingCompletion(completion *model.ReadingCompletion) error {
	if err := ds.db.Save(completion).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// SearchCompletions joins completions with students and texts applying the
// teacher-facing filters, newest first.
func (ds *PostgresService) SearchCompletions(req dto.CompletionFilterRequest) ([]dto.CompletionResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	skip := req.Skip
	if skip < 0 {
		skip = 0
	}

	query := ds.db.Model(&model.ReadingCompletion{}).
		Select(`reading_completions.id,
			users.full_name AS student_name,
			users.email AS student_email,
			texts.title AS text_title,
			reading_completions.completed_at,
			reading_completions.passed,
			reading_completions.ai_feedback,
			reading_completions.correct_answers`).
		Joins("JOIN users ON users.id = reading_completions.student_id").
		Joins("JOIN texts ON texts.id = reading_completions.text_id")

	if name := strings.TrimSpace(req.StudentName); name != "" {
		query = query.Where("LOWER(users.full_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if title := strings.TrimSpace(req.TextTitle); title != "" {
		query = query.Where("LOWER(texts.title) LIKE ?", "%"+strings.ToLower(title)+"%")
	}
	if req.Passed != nil {
		query = query.Where("reading_completions.passed = ?", *req.Passed)
	}
	if req.FromDate != "" {
		if from, err := time.Parse("2006-01-02", req.FromDate); err == nil {
			query = query.Where("reading_completions.completed_at >= ?", from)
		}
	}
	if req.ToDate != "" {
		if to, err := time.Parse("2006-01-02", req.ToDate); err == nil {
			query = query.Where("reading_completions.completed_at <= ?", to.Add(24*time.Hour-time.Nanosecond))
		}
	}

	var results []dto.CompletionResponse
	err := query.Order("reading_completions.completed_at DESC").
		Offset(skip).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return results, nil
}
