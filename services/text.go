package services

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alphabatem/common/context"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

// TextService manages teacher-submitted texts. Content arrives with
// <chunk>...</chunk> markers delimiting the units a student reads and is
// questioned on; the service validates the markers, splits the content and
// persists the ordered chunks.
type TextService struct {
	context.DefaultService

	sqlSvc *PostgresService
}

const TEXT_SVC = "text_svc"

const (
	chunkOpenTag  = "<chunk>"
	chunkCloseTag = "</chunk>"

	chunkOpenPlaceholder  = "|||CHUNKOPEN|||"
	chunkClosePlaceholder = "|||CHUNKCLOSE|||"
)

var chunkBoundaryRegex = regexp.MustCompile(`</chunk>\s*<chunk>`)

func (svc TextService) Id() string {
	return TEXT_SVC
}

// NewTextService wires the service outside the runtime container. Used by tests.
func NewTextService(sqlSvc *PostgresService) *TextService {
	return &TextService{sqlSvc: sqlSvc}
}

func (svc *TextService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *TextService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	return nil
}

// SanitizeText HTML-escapes the input and collapses whitespace while keeping
// the chunk markers intact.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, chunkOpenTag, chunkOpenPlaceholder)
	text = strings.ReplaceAll(text, chunkCloseTag, chunkClosePlaceholder)

	text = html.EscapeString(text)
	text = strings.Join(strings.Fields(text), " ")

	text = strings.ReplaceAll(text, chunkOpenPlaceholder, chunkOpenTag)
	text = strings.ReplaceAll(text, chunkClosePlaceholder, chunkCloseTag)
	return text
}

// ValidateChunks checks every <chunk> opens before it closes, closes before
// the next opens, and that the counts balance.
func ValidateChunks(content string) bool {
	rest := content
	depth := 0
	for {
		openIdx := strings.Index(rest, chunkOpenTag)
		closeIdx := strings.Index(rest, chunkCloseTag)

		if openIdx == -1 && closeIdx == -1 {
			return depth == 0
		}
		if closeIdx == -1 {
			return false
		}
		if openIdx != -1 && openIdx < closeIdx {
			if depth != 0 {
				return false
			}
			depth++
			rest = rest[openIdx+len(chunkOpenTag):]
			continue
		}
		if depth != 1 {
			return false
		}
		depth--
		rest = rest[closeIdx+len(chunkCloseTag):]
	}
}

// SplitIntoChunks splits sanitized content on chunk boundaries. Content
// without any markers is a single chunk.
func SplitIntoChunks(content string) ([]string, error) {
	if !ValidateChunks(content) {
		return nil, shared.NewBadRequestError(nil,
			"Invalid chunk formatting. Ensure all <chunk> tags are properly closed.")
	}

	chunks := chunkBoundaryRegex.Split(content, -1)

	chunks[0] = strings.Replace(chunks[0], chunkOpenTag, "", 1)
	chunks[len(chunks)-1] = strings.Replace(chunks[len(chunks)-1], chunkCloseTag, "", 1)

	for i := range chunks {
		chunks[i] = strings.TrimSpace(chunks[i])
	}
	return chunks, nil
}

// CreateText sanitizes, chunks and persists a teacher submission.
func (svc *TextService) CreateText(teacherID string, req dto.CreateTextRequest) (*dto.TextResponse, error) {
	title := SanitizeText(req.Title)
	content := SanitizeText(req.Content)

	parts, err := SplitIntoChunks(content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	text := &model.Text{
		TeacherID: teacherID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	chunks := make([]model.TextChunk, len(parts))
	for i, part := range parts {
		chunks[i] = model.TextChunk{
			Content:        part,
			SequenceNumber: i + 1,
			CreatedAt:      now,
		}
	}

	text, err = svc.sqlSvc.CreateText(text, chunks)
	if err != nil {
		return nil, err
	}

	return &dto.TextResponse{
		ID:         text.ID,
		TeacherID:  text.TeacherID,
		Title:      text.Title,
		ChunkCount: len(chunks),
		CreatedAt:  text.CreatedAt,
	}, nil
}

// DeleteText removes a text and all of its chunks.
func (svc *TextService) DeleteText(textID string) error {
	err := svc.sqlSvc.DeleteText(textID)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return shared.NewNotFoundError(err, "Text not found")
		}
		return err
	}
	return nil
}

// ListTeachers returns every teacher account for the student text picker.
func (svc *TextService) ListTeachers() ([]dto.TeacherResponse, error) {
	teachers, err := svc.sqlSvc.GetTeachers()
	if err != nil {
		return nil, err
	}

	out := make([]dto.TeacherResponse, len(teachers))
	for i, t := range teachers {
		out[i] = dto.TeacherResponse{ID: t.ID, FullName: t.FullName}
	}
	return out, nil
}

// GetTeacherTexts lists a teacher's texts, newest first.
func (svc *TextService) GetTeacherTexts(teacherID string) ([]dto.TextResponse, error) {
	teacher, err := svc.sqlSvc.GetUser(teacherID)
	if err != nil || !teacher.IsTeacher {
		return nil, shared.NewNotFoundError(err, "Teacher not found")
	}

	texts, err := svc.sqlSvc.GetTextsByTeacher(teacherID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.TextResponse, len(texts))
	for i, t := range texts {
		count, err := svc.sqlSvc.CountChunks(t.ID)
		if err != nil {
			return nil, err
		}
		out[i] = dto.TextResponse{
			ID:         t.ID,
			Title:      t.Title,
			ChunkCount: int(count),
			CreatedAt:  t.CreatedAt,
		}
	}
	return out, nil
}

// GetFirstChunk returns the opening chunk of a text.
func (svc *TextService) GetFirstChunk(textID string) (*dto.ChunkResponse, error) {
	chunk, err := svc.sqlSvc.GetChunkBySequence(textID, 1)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return nil, shared.NewNotFoundError(err, "Text chunk not found")
		}
		return nil, err
	}
	return chunkResponse(chunk), nil
}

// GetNextChunk returns the chunk following currentChunkID within the text.
func (svc *TextService) GetNextChunk(textID, currentChunkID string) (*dto.ChunkResponse, error) {
	current, err := svc.sqlSvc.GetChunk(currentChunkID)
	if err != nil || current.TextID != textID {
		return nil, shared.NewNotFoundError(err, "Current chunk not found")
	}

	next, err := svc.sqlSvc.GetChunkBySequence(textID, current.SequenceNumber+1)
	if err != nil {
		if svc.sqlSvc.IsNotFound(err) {
			return nil, shared.NewNotFoundError(err, "No more chunks available")
		}
		return nil, err
	}
	return chunkResponse(next), nil
}

func chunkResponse(chunk *model.TextChunk) *dto.ChunkResponse {
	return &dto.ChunkResponse{
		ChunkID:        chunk.ID,
		Content:        chunk.Content,
		SequenceNumber: chunk.SequenceNumber,
	}
}

// CleanText strips HTML tags, chunk markers and redundant whitespace before
// content is handed to the model.
func CleanText(text string) string {
	text = htmlTagRegex.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

var htmlTagRegex = regexp.MustCompile(`<[^>]+>`)

// CleanStudentAnswer strips markup from a submitted answer and lowercases it.
func CleanStudentAnswer(text string) string {
	text = htmlTagRegex.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return strings.ToLower(strings.TrimSpace(text))
}
