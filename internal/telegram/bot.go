package telegram

import (
	"context"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"persona-bot/internal/llm"
	"persona-bot/internal/session"
)

const resetCallback = "reset_ctx"

const (
	failureReply     = "Sorry, something went wrong."
	promptSavedReply = "Persona saved. Now send your questions."
	resetDoneReply   = "Context cleared."
	emptyPromptReply = "The persona text is empty. Usage: /role <persona text>"
	startReply       = "Send /role <persona text> to set the assistant persona " +
		"(or just send it as your first message), then ask away. /reset clears the conversation."
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type apiSender struct{ api *tgbotapi.BotAPI }

func (s apiSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) { return s.api.Send(c) }

type Bot struct {
	api           *tgbotapi.BotAPI
	s             sender
	store         session.Store
	llmClient     llm.Client
	defaultPrompt string
	parseMode     string

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(botToken string, store session.Store, llmClient llm.Client, defaultPrompt, parseMode string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:           api,
		s:             apiSender{api: api},
		store:         store,
		llmClient:     llmClient,
		defaultPrompt: defaultPrompt,
		parseMode:     parseMode,
		locks:         make(map[int64]*sync.Mutex),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message != nil {
			b.handleIncomingMessage(ctx, update.Message)
			continue
		}
		if update.CallbackQuery != nil {
			b.handleCallback(ctx, update.CallbackQuery)
			continue
		}
	}
}

// lockChat serializes load->assemble->call->save for one chat; /role, /reset
// and the reset callback take the same lock, so a reset cannot be undone by a
// save from an in-flight exchange. Different chats still run concurrently.
func (b *Bot) lockChat(chatID int64) func() {
	b.mu.Lock()
	l, ok := b.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[chatID] = l
	}
	b.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if b.parseMode != "" {
		msg.ParseMode = b.parseMode
	}
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
