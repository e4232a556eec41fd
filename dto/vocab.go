package dto

type VocabChatRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=2000" example:"What does 'skiff' mean?"`
}

func (r VocabChatRequest) Validate() error {
	return GetValidator().Struct(r)
}

type VocabChatResponse struct {
	Reply string `json:"reply"`
}
