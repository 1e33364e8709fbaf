package chatstore

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/model"
)

const (
	telegramRetryDelay = time.Second
	telegramRetries    = 3

	// telegramHTTPTimeout ограничивает каждый HTTP-вызов Bot API:
	// зависшее соединение не должно блокировать сохранение снапшота.
	telegramHTTPTimeout = 10 * time.Second
)

func apiHTTPClient() *http.Client {
	return &http.Client{Timeout: telegramHTTPTimeout}
}

// NewAPI создаёт клиента Bot API с ограниченным временем каждого
// HTTP-вызова. Клиент по умолчанию таймаута не имеет.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, apiHTTPClient())
}

// TelegramStore хранит объекты в выделенном чате Telegram. Append
// отправляет сообщение и закрепляет его; Bot API не умеет листать
// историю чата, поэтому FetchRecent читает закреплённое сообщение —
// оно всегда указывает на последний снапшот, старые остаются в канале.
type TelegramStore struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramStore создаёт хранилище поверх указанного чата.
func NewTelegramStore(api *tgbotapi.BotAPI, chatID int64, logger *zap.Logger) *TelegramStore {
	return &TelegramStore{
		api:    api,
		chatID: chatID,
		logger: logger,
	}
}

func (s *TelegramStore) backoff() retry.Backoff {
	return retry.WithMaxRetries(telegramRetries, retry.NewConstant(telegramRetryDelay))
}

// Append отправляет тело объекта в чат хранения и закрепляет его.
func (s *TelegramStore) Append(ctx context.Context, body string) error {
	var messageID int

	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		sent, err := s.api.Send(tgbotapi.NewMessage(s.chatID, body))
		if err != nil {
			return retry.RetryableError(err)
		}
		messageID = sent.MessageID
		return nil
	})
	if err != nil {
		return &model.PersistenceError{Op: "append", Err: err}
	}

	pin := tgbotapi.PinChatMessageConfig{
		ChatID:              s.chatID,
		MessageID:           messageID,
		DisableNotification: true,
	}
	if _, err := s.api.Request(pin); err != nil {
		// Сообщение уже в канале; без закрепления следующая загрузка
		// увидит предыдущий снапшот.
		s.logger.Warn("pin snapshot message failed", zap.Error(err), zap.Int("messageID", messageID))
	}
	return nil
}

// FetchRecent возвращает тело закреплённого сообщения чата хранения.
func (s *TelegramStore) FetchRecent(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	var chat tgbotapi.Chat
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		got, err := s.api.GetChat(tgbotapi.ChatInfoConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: s.chatID},
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		chat = got
		return nil
	})
	if err != nil {
		return nil, &model.PersistenceError{Op: "fetch", Err: err}
	}

	if chat.PinnedMessage == nil || chat.PinnedMessage.Text == "" {
		return nil, nil
	}
	return []string{chat.PinnedMessage.Text}, nil
}
