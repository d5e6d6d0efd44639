package llm

import "context"

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client abstracts a chat-completion provider. Generate receives the full
// ordered message list for one exchange; providers must preserve the order.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}
