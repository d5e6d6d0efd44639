package telegram

import (
	"context"
	"errors"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"persona-bot/internal/history"
	"persona-bot/internal/session"
)

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	chatID := msg.Chat.ID
	log.Printf("Incoming message from chat %d: %q", chatID, msg.Text)

	unlock := b.lockChat(chatID)
	defer unlock()

	sess, err := b.store.LoadOrCreate(ctx, chatID, b.defaultPrompt)
	if err != nil {
		log.Printf("failed to load session for chat %d: %v", chatID, err)
		b.sendMessage(chatID, failureReply)
		return
	}

	// No persona yet: the first message becomes the role prompt.
	if sess.RolePrompt == "" {
		if err := b.store.SetPrompt(ctx, chatID, msg.Text); err != nil {
			log.Printf("failed to set prompt for chat %d: %v", chatID, err)
			b.sendMessage(chatID, failureReply)
			return
		}
		b.sendMessage(chatID, promptSavedReply)
		return
	}

	contextMsgs := history.Assemble(sess.RolePrompt, sess.History, msg.Text)

	resp, err := b.llmClient.Generate(ctx, contextMsgs)
	if err != nil {
		// The apology is not a real answer and must not enter the history.
		log.Printf("failed to generate text for chat %d: %v", chatID, err)
		b.sendMessage(chatID, failureReply)
		return
	}

	log.Printf("LLM response for chat %d [model=%s, tokens: prompt=%d, completion=%d, total=%d]",
		chatID, resp.Model, resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)

	newHistory := history.Apply(sess.History, msg.Text, history.Success(resp.Content))
	if err := b.store.SaveHistory(ctx, chatID, newHistory); err != nil {
		log.Printf("failed to save history for chat %d: %v", chatID, err)
		b.sendMessage(chatID, failureReply)
		return
	}

	// Reply with inline button to reset context
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Reset context", resetCallback),
		),
	)
	out := tgbotapi.NewMessage(chatID, resp.Content)
	out.ReplyMarkup = kb
	if b.parseMode != "" {
		out.ParseMode = b.parseMode
	}
	if _, err := b.s.Send(out); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, startReply)
	case "role":
		unlock := b.lockChat(chatID)
		defer unlock()
		prompt := strings.TrimSpace(msg.CommandArguments())
		if err := b.store.SetPrompt(ctx, chatID, prompt); err != nil {
			if errors.Is(err, session.ErrEmptyPrompt) {
				b.sendMessage(chatID, emptyPromptReply)
				return
			}
			log.Printf("failed to set prompt for chat %d: %v", chatID, err)
			b.sendMessage(chatID, failureReply)
			return
		}
		b.sendMessage(chatID, promptSavedReply)
	case "reset":
		unlock := b.lockChat(chatID)
		defer unlock()
		b.resetHistory(ctx, chatID)
	default:
		log.Printf("ignoring unknown command %q from chat %d", msg.Command(), chatID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Data != resetCallback || cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	unlock := b.lockChat(chatID)
	defer unlock()
	b.resetHistory(ctx, chatID)
}

func (b *Bot) resetHistory(ctx context.Context, chatID int64) {
	if err := b.store.ResetHistory(ctx, chatID); err != nil {
		log.Printf("failed to reset history for chat %d: %v", chatID, err)
		b.sendMessage(chatID, failureReply)
		return
	}
	b.sendMessage(chatID, resetDoneReply)
}
