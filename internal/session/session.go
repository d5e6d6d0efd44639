package session

import (
	"context"
	"errors"
)

// Session is the durable state of one chat: its role prompt ("persona") and
// the encoded turn history.
type Session struct {
	ChatID     int64
	RolePrompt string
	History    string
}

// ErrEmptyPrompt is returned by SetPrompt when the prompt is blank after
// trimming whitespace.
var ErrEmptyPrompt = errors.New("role prompt is empty")

// Store abstracts persistence of chat sessions.
// Implementations can be SQLite, file-based, etc.
// LoadOrCreate must not produce two rows for the same chat id under
// concurrent first contact. Implementations must be safe for concurrent use.
type Store interface {
	LoadOrCreate(ctx context.Context, chatID int64, defaultPrompt string) (Session, error)
	SetPrompt(ctx context.Context, chatID int64, prompt string) error
	ResetHistory(ctx context.Context, chatID int64) error
	SaveHistory(ctx context.Context, chatID int64, history string) error
}
