package backend

// WorkerMessage is a single {role, content} pair sent to the worker
type WorkerMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WorkerRequest represents the request body posted to the chat-completion worker
type WorkerRequest struct {
	Messages  []WorkerMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

// WorkerResponse accepts both the OpenAI-style body the worker usually relays and the flat
// result/content shape some deployments return.
type WorkerResponse struct {
	ID      string `json:"id,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Result  string                 `json:"result,omitempty"`
	Content string                 `json:"content,omitempty"`
	Error   any                    `json:"error,omitempty"`
	Usage   map[string]interface{} `json:"usage,omitempty"`
}

// Text returns the reply text: choices[0].message.content, then result, then content.
func (r WorkerResponse) Text() (string, bool) {
	if len(r.Choices) > 0 && r.Choices[0].Message.Content != "" {
		return r.Choices[0].Message.Content, true
	}
	if r.Result != "" {
		return r.Result, true
	}
	if r.Content != "" {
		return r.Content, true
	}
	return "", false
}
