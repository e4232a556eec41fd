package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/student-reader/reader_api/dto"
	"github.com/student-reader/reader_api/model"
	"github.com/student-reader/reader_api/shared"
)

type testFixture struct {
	sqlSvc     *PostgresService
	sessionSvc *ReadingSessionService
	testSvc    *TestService
	ai         *MockAIClient

	student *model.User
	text    *model.Text
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	sqlSvc := NewPostgresServiceFromDB(newTestDB(t))
	sessionSvc := NewReadingSessionService(sqlSvc, 7*24*time.Hour)
	ai := &MockAIClient{}

	student, err := sqlSvc.CreateUser(&model.User{
		Username:       "pupil",
		Email:          "pupil@example.com",
		FullName:       "A Pupil",
		HashedPassword: "x",
	})
	require.NoError(t, err)

	text, err := sqlSvc.CreateText(
		&model.Text{TeacherID: "teacher-1", Title: "The Sea", Content: "x"},
		[]model.TextChunk{
			{Content: "first part", SequenceNumber: 1},
			{Content: "second part", SequenceNumber: 2},
		})
	require.NoError(t, err)

	return &testFixture{
		sqlSvc:     sqlSvc,
		sessionSvc: sessionSvc,
		testSvc:    NewTestService(sqlSvc, sessionSvc, ai),
		ai:         ai,
		student:    student,
		text:       text,
	}
}

var fiveQuestions = []dto.TestQuestion{
	{ID: "1", Question: "q1"},
	{ID: "2", Question: "q2"},
	{ID: "3", Question: "q3"},
	{ID: "4", Question: "q4"},
	{ID: "5", Question: "q5"},
}

func (f *testFixture) generate(t *testing.T) *dto.TestQuestionsResponse {
	t.Helper()

	f.ai.On("GenerateTest", mock.Anything, "The Sea", mock.Anything).Return(fiveQuestions, nil).Once()

	resp, err := f.testSvc.GenerateTest(context.Background(), f.student.ID, dto.GenerateTestRequest{TextID: f.text.ID})
	require.NoError(t, err)
	return resp
}

func (f *testFixture) submit(t *testing.T, evaluation *TestEvaluation) (*dto.TestResultResponse, error) {
	t.Helper()

	f.ai.On("EvaluateTest", mock.Anything, mock.Anything, fiveQuestions, mock.Anything).
		Return(evaluation, nil).Once()

	return f.testSvc.SubmitTest(context.Background(), f.student.ID, dto.SubmitTestRequest{
		TextID:  f.text.ID,
		Answers: map[string]string{"1": "a", "2": "b", "3": "c", "4": "d", "5": "e"},
	})
}

func TestGenerateTest_RecordsQuestionsInTranscript(t *testing.T) {
	f := newTestFixture(t)

	resp := f.generate(t)
	assert.Len(t, resp.Questions, 5)

	messages, err := f.sessionSvc.GetConversationHistory(resp.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, shared.MessageTypeTestGeneration, messages[0].Type)
	assert.Equal(t, shared.RoleSystem, messages[0].Role)

	f.ai.AssertExpectations(t)
}

func TestGenerateTest_UnknownText(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.testSvc.GenerateTest(context.Background(), f.student.ID, dto.GenerateTestRequest{TextID: "missing"})
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.StatusCode)
}

func TestSubmitTest_CreatesCompletionAndCompletesSession(t *testing.T) {
	f := newTestFixture(t)

	generated := f.generate(t)

	result, err := f.submit(t, &TestEvaluation{
		CorrectAnswers: 4,
		Passed:         true,
		Summary:        "Strong grasp of the text.",
		Feedback:       []dto.AnswerFeedback{{QuestionID: "1", Correct: true, Feedback: "yes"}},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 4, result.CorrectAnswers)
	assert.InDelta(t, 80.0, result.Score, 0.01)

	completion, err := f.sqlSvc.GetReadingCompletion(f.student.ID, f.text.ID)
	require.NoError(t, err)
	assert.True(t, completion.Passed)
	assert.Equal(t, 4, completion.CorrectAnswers)
	assert.Equal(t, "Strong grasp of the text.", completion.AIFeedback)

	session, err := f.sqlSvc.GetReadingSession(generated.SessionID)
	require.NoError(t, err)
	assert.True(t, session.IsCompleted)

	messages, err := f.sessionSvc.GetConversationHistory(generated.SessionID)
	require.NoError(t, err)
	assert.Equal(t, shared.MessageTypeTestEvaluation, messages[len(messages)-1].Type)
}

func TestSubmitTest_BetterAttemptOverwrites(t *testing.T) {
	f := newTestFixture(t)

	f.generate(t)
	_, err := f.submit(t, &TestEvaluation{CorrectAnswers: 2, Passed: false, Summary: "Needs work."})
	require.NoError(t, err)

	f.generate(t)
	_, err = f.submit(t, &TestEvaluation{CorrectAnswers: 4, Passed: true, Summary: "Much better."})
	require.NoError(t, err)

	completion, err := f.sqlSvc.GetReadingCompletion(f.student.ID, f.text.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, completion.CorrectAnswers)
	assert.True(t, completion.Passed)
	assert.Equal(t, "Much better.", completion.AIFeedback)
}

func TestSubmitTest_TieAndRegressionKeepStoredRecord(t *testing.T) {
	f := newTestFixture(t)

	f.generate(t)
	_, err := f.submit(t, &TestEvaluation{CorrectAnswers: 3, Passed: true, Summary: "Passed."})
	require.NoError(t, err)

	before, err := f.sqlSvc.GetReadingCompletion(f.student.ID, f.text.ID)
	require.NoError(t, err)

	f.generate(t)
	_, err = f.submit(t, &TestEvaluation{CorrectAnswers: 3, Passed: true, Summary: "Tie attempt."})
	require.NoError(t, err)

	f.generate(t)
	_, err = f.submit(t, &TestEvaluation{CorrectAnswers: 1, Passed: false, Summary: "Worse attempt."})
	require.NoError(t, err)

	after, err := f.sqlSvc.GetReadingCompletion(f.student.ID, f.text.ID)
	require.NoError(t, err)
	assert.Equal(t, before.CorrectAnswers, after.CorrectAnswers)
	assert.Equal(t, before.Passed, after.Passed)
	assert.Equal(t, "Passed.", after.AIFeedback)
	assert.WithinDuration(t, before.CompletedAt, after.CompletedAt, time.Second)
}

func TestSubmitTest_NoActiveSession(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.testSvc.SubmitTest(context.Background(), f.student.ID, dto.SubmitTestRequest{
		TextID:  f.text.ID,
		Answers: map[string]string{"1": "a"},
	})
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestSubmitTest_NoGeneratedTest(t *testing.T) {
	f := newTestFixture(t)

	_, err := f.sessionSvc.GetOrCreateSession(f.student.ID, f.text.ID, "chunk-1", "")
	require.NoError(t, err)

	_, err = f.testSvc.SubmitTest(context.Background(), f.student.ID, dto.SubmitTestRequest{
		TextID:  f.text.ID,
		Answers: map[string]string{"1": "a"},
	})
	require.Error(t, err)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestSearchCompletions_Filters(t *testing.T) {
	f := newTestFixture(t)

	f.generate(t)
	_, err := f.submit(t, &TestEvaluation{CorrectAnswers: 4, Passed: true, Summary: "Good."})
	require.NoError(t, err)

	results, err := f.testSvc.SearchCompletions(dto.CompletionFilterRequest{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A Pupil", results[0].StudentName)
	assert.Equal(t, "The Sea", results[0].TextTitle)
	assert.True(t, results[0].Passed)

	passed := false
	results, err = f.testSvc.SearchCompletions(dto.CompletionFilterRequest{Passed: &passed})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = f.testSvc.SearchCompletions(dto.CompletionFilterRequest{StudentName: "pupil"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
