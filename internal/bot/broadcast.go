package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mvolkov/accmarket-bot/internal/model"
)

// broadcastLimit — темп рассылки, удерживающий бота в пределах лимитов
// Telegram на отправку сообщений.
var broadcastLimit = rate.Limit(20)

// /broadcast <password> <text>
func (b *Bot) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /broadcast <password> <text>")
		return
	}

	text := strings.Join(args, " ")

	var userIDs []int64
	b.store.View(func(st *model.State) {
		for id := range st.Users {
			userIDs = append(userIDs, id)
		}
	})

	sent, failed := b.broadcast(ctx, userIDs, "📢 "+text)
	b.reply(msg.Chat.ID, fmt.Sprintf("📢 Broadcast finished: %d sent, %d failed.", sent, failed))
}

// broadcast рассылает текст всем получателям. Ошибки по отдельным
// получателям не прерывают рассылку; возвращаются счётчики успехов и
// неудач.
func (b *Bot) broadcast(ctx context.Context, userIDs []int64, text string) (sent, failed int) {
	limiter := rate.NewLimiter(broadcastLimit, 1)

	for _, id := range userIDs {
		if err := limiter.Wait(ctx); err != nil {
			// Остановка процесса; недоставленные считаем неудачами.
			failed += len(userIDs) - sent - failed
			return sent, failed
		}
		if _, err := b.api.Send(tgbotapi.NewMessage(id, text)); err != nil {
			b.logger.Warn("broadcast send failed", zap.Error(err), zap.Int64("userID", id))
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}
