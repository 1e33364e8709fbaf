// Package bot реализует диалоговую поверхность магазина в Telegram.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/admin"
	"github.com/mvolkov/accmarket-bot/internal/inventory"
	"github.com/mvolkov/accmarket-bot/internal/ledger"
	"github.com/mvolkov/accmarket-bot/internal/payment"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

// telegramAPI — поверхность Bot API, нужная боту. *tgbotapi.BotAPI
// реализует её; тесты подставляют заглушку.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot связывает входящие события Telegram с доменными операциями.
type Bot struct {
	api    telegramAPI
	logger *zap.Logger

	store     *store.Store
	ledger    *ledger.Engine
	inventory *inventory.Engine
	payments  *payment.Engine
	admins    *admin.Registry

	adminPassword string
	// auditChatID — чат хранения: туда же уходят служебные заметки о
	// регистрациях и продажах. 0 — заметки отключены (файловый режим).
	auditChatID int64
}

// New создаёт бота поверх готовых движков.
func New(
	api telegramAPI,
	logger *zap.Logger,
	st *store.Store,
	ledgerEngine *ledger.Engine,
	inventoryEngine *inventory.Engine,
	paymentEngine *payment.Engine,
	adminRegistry *admin.Registry,
	adminPassword string,
	auditChatID int64,
) *Bot {
	return &Bot{
		api:           api,
		logger:        logger,
		store:         st,
		ledger:        ledgerEngine,
		inventory:     inventoryEngine,
		payments:      paymentEngine,
		admins:        adminRegistry,
		adminPassword: adminPassword,
		auditChatID:   auditChatID,
	}
}

// Run получает обновления до отмены контекста. Каждое обновление
// обрабатывается до конца перед следующим.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot is running")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "balance":
		b.handleBalance(msg)
	case "stock":
		b.handleStock(msg)
	case "addfunds":
		b.handleAddFunds(ctx, msg)
	case "buy":
		b.handleBuyMenu(msg)
	case "additem":
		b.handleAddItem(ctx, msg)
	case "tfund":
		b.handleAdjustFunds(ctx, msg)
	case "verify":
		b.handleVerify(ctx, msg)
	case "reject":
		b.handleRejectPayment(ctx, msg)
	case "prchange":
		b.handleChangePrice(ctx, msg)
	case "newadmin":
		b.handleNewAdmin(ctx, msg)
	case "deladmin":
		b.handleRemoveAdmin(ctx, msg)
	case "broadcast":
		b.handleBroadcast(ctx, msg)
	case "stats":
		b.handleStats(msg)
	case "backup":
		b.handleBackup(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use the menu buttons below.")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message failed", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// audit отправляет служебную заметку в чат хранения. Заметки не несут
// метку снапшота и игнорируются при загрузке состояния.
func (b *Bot) audit(text string) {
	if b.auditChatID == 0 {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(b.auditChatID, text)); err != nil {
		b.logger.Warn("audit message failed", zap.Error(err))
	}
}

func formatAmount(paise int64) string {
	return fmt.Sprintf("₹%.2f", float64(paise)/100)
}
