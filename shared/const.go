package shared

const (
	UserID    = "user_id"
	Username  = "username"
	IsTeacher = "is_teacher"
	IsAdmin   = "is_admin"

	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"

	MessageTypeChunk          = "chunk"
	MessageTypeQuestion       = "question"
	MessageTypeAnswer         = "answer"
	MessageTypeFeedback       = "feedback"
	MessageTypeTestGeneration = "test_generation"
	MessageTypeTestEvaluation = "test_evaluation"
)
