package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
)

func newTextService(t *testing.T) (*TextService, *PostgresService) {
	t.Helper()

	sqlSvc := NewPostgresServiceFromDB(newTestDB(t))
	return NewTextService(sqlSvc), sqlSvc
}

func seedTeacher(t *testing.T, sqlSvc *PostgresService) *model.User {
	t.Helper()

	teacher, err := sqlSvc.CreateUser(&model.User{
		Username:       "mrsmith",
		Email:          "smith@example.com",
		FullName:       "Jane Smith",
		HashedPassword: "x",
		IsTeacher:      true,
	})
	require.NoError(t, err)
	return teacher
}

func TestSanitizeText(t *testing.T) {
	in := "<chunk>He said <b>hello</b>   and\nleft.</chunk>"
	out := SanitizeText(in)

	assert.Equal(t, "<chunk>He said &lt;b&gt;hello&lt;/b&gt; and left.</chunk>", out)
}

func TestValidateChunks(t *testing.T) {
	assert.True(t, ValidateChunks("<chunk>a</chunk><chunk>b</chunk>"))
	assert.True(t, ValidateChunks("no markers at all"))
	assert.False(t, ValidateChunks("<chunk>a"))
	assert.False(t, ValidateChunks("a</chunk>"))
	assert.False(t, ValidateChunks("<chunk>a<chunk>b</chunk></chunk>"))
	assert.False(t, ValidateChunks("</chunk><chunk>a</chunk>"))
}

func TestSplitIntoChunks(t *testing.T) {
	chunks, err := SplitIntoChunks("<chunk>one</chunk> <chunk>two</chunk><chunk>three</chunk>")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, chunks)
}

func TestSplitIntoChunks_NoMarkers(t *testing.T) {
	chunks, err := SplitIntoChunks("just a plain text")
	require.NoError(t, err)
	assert.Equal(t, []string{"just a plain text"}, chunks)
}

func TestSplitIntoChunks_Unbalanced(t *testing.T) {
	_, err := SplitIntoChunks("<chunk>one")
	require.Error(t, err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "He was an old man.", CleanText("<chunk>He was   an <i>old</i>\nman.</chunk>"))
}

func TestCleanStudentAnswer(t *testing.T) {
	assert.Equal(t, "the old man & the sea",
		CleanStudentAnswer("  The <b>Old</b> Man &amp; the Sea "))
}

func TestCreateText_PersistsOrderedChunks(t *testing.T) {
	svc, sqlSvc := newTextService(t)
	teacher := seedTeacher(t, sqlSvc)

	resp, err := svc.CreateText(teacher.ID, dto.CreateTextRequest{
		Title:   "The Sea",
		Content: "<chunk>first part</chunk><chunk>second part</chunk>",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ChunkCount)

	chunks, err := sqlSvc.GetChunksByText(resp.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first part", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].SequenceNumber)
	assert.Equal(t, "second part", chunks[1].Content)
	assert.Equal(t, 2, chunks[1].SequenceNumber)
}

func TestCreateText_RejectsBadMarkup(t *testing.T) {
	svc, sqlSvc := newTextService(t)
	teacher := seedTeacher(t, sqlSvc)

	_, err := svc.CreateText(teacher.ID, dto.CreateTextRequest{
		Title:   "Broken",
		Content: "<chunk>unclosed",
	})
	require.Error(t, err)
}

func TestDeleteText_RemovesChunks(t *testing.T) {
	svc, sqlSvc := newTextService(t)
	teacher := seedTeacher(t, sqlSvc)

	resp, err := svc.CreateText(teacher.ID, dto.CreateTextRequest{
		Title:   "The Sea",
		Content: "<chunk>first</chunk><chunk>second</chunk>",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteText(resp.ID))

	count, err := sqlSvc.CountChunks(resp.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	require.Error(t, svc.DeleteText(resp.ID))
}

func TestChunkNavigation(t *testing.T) {
	svc, sqlSvc := newTextService(t)
	teacher := seedTeacher(t, sqlSvc)

	resp, err := svc.CreateText(teacher.ID, dto.CreateTextRequest{
		Title:   "The Sea",
		Content: "<chunk>first</chunk><chunk>second</chunk>",
	})
	require.NoError(t, err)

	first, err := svc.GetFirstChunk(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	assert.Equal(t, 1, first.SequenceNumber)

	next, err := svc.GetNextChunk(resp.ID, first.ChunkID)
	require.NoError(t, err)
	assert.Equal(t, "second", next.Content)

	_, err = svc.GetNextChunk(resp.ID, next.ChunkID)
	require.Error(t, err)
}

func TestGetTeacherTexts(t *testing.T) {
	svc, sqlSvc := newTextService(t)
	teacher := seedTeacher(t, sqlSvc)

	_, err := svc.CreateText(teacher.ID, dto.CreateTextRequest{
		Title:   "The Sea",
		Content: "<chunk>first</chunk><chunk>second</chunk>",
	})
	require.NoError(t, err)

	texts, err := svc.GetTeacherTexts(teacher.ID)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, 2, texts[0].ChunkCount)

	student, err := sqlSvc.CreateUser(&model.User{
		Username:       "pupil",
		Email:          "pupil@example.com",
		FullName:       "A Pupil",
		HashedPassword: "x",
	})
	require.NoError(t, err)

	_, err = svc.GetTeacherTexts(student.ID)
	require.Error(t, err)
}
