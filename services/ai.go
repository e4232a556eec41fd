package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/openai/openai-go"
	log "github.com/sirupsen/logrus"

	"github.com/student-reader/reader_api/dto"
)

// AIClient is the surface the orchestration services consume; tests swap in a
// mock so no network calls are made.
type AIClient interface {
	GenerateQuestion(ctx context.Context, chunk string) (string, error)
	EvaluateAnswer(ctx context.Context, chunk, question, answer string) (*AnswerEvaluation, error)
	GenerateTest(ctx context.Context, title, excerpts string) ([]dto.TestQuestion, error)
	EvaluateTest(ctx context.Context, excerpts string, questions []dto.TestQuestion, answers map[string]string) (*TestEvaluation, error)
	Chat(ctx context.Context, prompt string) (string, error)
}

type AnswerEvaluation struct {
	Correct          bool   `json:"correct"`
	Feedback         string `json:"feedback"`
	FollowUpQuestion string `json:"follow_up_question"`
}

type TestEvaluation struct {
	CorrectAnswers int                  `json:"correct_answers"`
	Passed         bool                 `json:"passed"`
	Summary        string               `json:"summary"`
	Feedback       []dto.AnswerFeedback `json:"feedback"`
}

// AIService talks to the OpenAI Chat Completions API for question generation
// and answer grading. Structured replies are requested as plain JSON in the
// prompt and parsed leniently.
type AIService struct {
	appContext.DefaultService

	client      *openai.Client
	model       string
	temperature float64

	monitoringSvc *MonitoringService
}

const AI_SVC = "ai_svc"

func (svc AIService) Id() string {
	return AI_SVC
}

func (svc *AIService) Configure(ctx *appContext.Context) error {
	svc.model = os.Getenv("OPENAI_MODEL")
	if svc.model == "" {
		svc.model = openai.ChatModelGPT4oMini
	}
	svc.temperature = 0.7

	return svc.DefaultService.Configure(ctx)
}

func (svc *AIService) Start() error {
	// The client reads OPENAI_API_KEY from the environment.
	client := openai.NewClient()
	svc.client = &client
	svc.monitoringSvc, _ = svc.Service(MONITORING_SVC).(*MonitoringService)
	return nil
}

const questionSystemPrompt = "You are a reading tutor. Given a passage a student has just read, " +
	"ask exactly one comprehension question about it. Reply with the question only."

func (svc *AIService) GenerateQuestion(ctx context.Context, chunk string) (string, error) {
	reply, err := svc.complete(ctx, "generate_question", questionSystemPrompt,
		fmt.Sprintf("Passage:\n%s", chunk))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

const evaluationSystemPrompt = "You are a reading tutor grading a student's answer to a comprehension " +
	"question about a passage. Reply with a JSON object only, no prose around it, shaped as " +
	`{"correct": bool, "feedback": string, "follow_up_question": string}. ` +
	"Leave follow_up_question empty when the answer needs no follow-up."

func (svc *AIService) EvaluateAnswer(ctx context.Context, chunk, question, answer string) (*AnswerEvaluation, error) {
	reply, err := svc.complete(ctx, "evaluate_answer", evaluationSystemPrompt,
		fmt.Sprintf("Passage:\n%s\n\nQuestion: %s\n\nStudent answer: %s", chunk, question, answer))
	if err != nil {
		return nil, err
	}

	var evaluation AnswerEvaluation
	if err := sonic.Unmarshal(extractJSON(reply), &evaluation); err != nil {
		log.WithError(err).Warn("Unparseable answer evaluation from model")
		return nil, fmt.Errorf("failed to parse answer evaluation: %w", err)
	}
	return &evaluation, nil
}

const testSystemPrompt = "You are creating a final comprehension test for students who have just " +
	"completed reading a text. Generate 5 challenging questions that test overall understanding " +
	"of the main themes, events, and concepts. Reply with a JSON object only, shaped as " +
	`{"questions": [{"id": string, "question": string}]}.`

func (svc *AIService) GenerateTest(ctx context.Context, title, excerpts string) ([]dto.TestQuestion, error) {
	reply, err := svc.complete(ctx, "generate_test", testSystemPrompt,
		fmt.Sprintf("For text: '%s', using these excerpts: %s", title, excerpts))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions []dto.TestQuestion `json:"questions"`
	}
	if err := sonic.Unmarshal(extractJSON(reply), &parsed); err != nil {
		log.WithError(err).Warn("Unparseable test questions from model")
		return nil, fmt.Errorf("failed to parse test questions: %w", err)
	}
	if len(parsed.Questions) == 0 {
		return nil, fmt.Errorf("model returned no test questions")
	}
	return parsed.Questions, nil
}

const testEvaluationSystemPrompt = "You are grading a student's final comprehension test. For each " +
	"question decide whether the student's answer is correct and give one sentence of feedback. " +
	"Reply with a JSON object only, shaped as " +
	`{"correct_answers": int, "passed": bool, "summary": string, ` +
	`"feedback": [{"question_id": string, "correct": bool, "feedback": string}]}. ` +
	"A student passes with 3 or more correct answers."

func (svc *AIService) EvaluateTest(ctx context.Context, excerpts string, questions []dto.TestQuestion, answers map[string]string) (*TestEvaluation, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Excerpts:\n%s\n\n", excerpts)
	for _, q := range questions {
		fmt.Fprintf(&sb, "Question %s: %s\nStudent answer: %s\n\n", q.ID, q.Question, answers[q.ID])
	}

	reply, err := svc.complete(ctx, "evaluate_test", testEvaluationSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var evaluation TestEvaluation
	if err := sonic.Unmarshal(extractJSON(reply), &evaluation); err != nil {
		log.WithError(err).Warn("Unparseable test evaluation from model")
		return nil, fmt.Errorf("failed to parse test evaluation: %w", err)
	}
	return &evaluation, nil
}

const chatSystemPrompt = "Be concise. You are the teacher replying to your student."

func (svc *AIService) Chat(ctx context.Context, prompt string) (string, error) {
	reply, err := svc.complete(ctx, "chat", chatSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (svc *AIService) complete(ctx context.Context, operation, system, user string) (string, error) {
	resp, err := svc.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: svc.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(svc.temperature),
	})
	if err != nil {
		svc.recordCompletion(operation, "error")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		svc.recordCompletion(operation, "error")
		return "", fmt.Errorf("chat completion returned no choices")
	}
	svc.recordCompletion(operation, "ok")
	return resp.Choices[0].Message.Content, nil
}

func (svc *AIService) recordCompletion(operation, outcome string) {
	if svc.monitoringSvc != nil {
		svc.monitoringSvc.RecordAICompletion(operation, outcome)
	}
}

// extractJSON tolerates models that wrap their JSON reply in code fences or
// stray prose by slicing from the first brace to the last.
func extractJSON(reply string) []byte {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start >= 0 && end > start {
		return []byte(reply[start : end+1])
	}
	return []byte(reply)
}
