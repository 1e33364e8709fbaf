package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/model"
)

// requireAdmin проверяет членство в списке администраторов и общий
// пароль, передаваемый первым аргументом команды. Возвращает остальные
// аргументы.
func (b *Bot) requireAdmin(msg *tgbotapi.Message) ([]string, error) {
	if msg.From == nil || !b.admins.IsAdmin(msg.From.ID) {
		return nil, model.ErrUnauthorized
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 || b.adminPassword == "" || args[0] != b.adminPassword {
		return nil, model.ErrUnauthorized
	}
	return args[1:], nil
}

func (b *Bot) rejectUnauthorized(msg *tgbotapi.Message) {
	fields := []zap.Field{zap.String("command", msg.Command())}
	if msg.From != nil {
		fields = append(fields, zap.Int64("userID", msg.From.ID))
	}
	b.logger.Warn("unauthorized admin command", fields...)
	b.reply(msg.Chat.ID, "⛔ You are not allowed to do that.")
}

// /additem <password> <username> <account_password> [email]
func (b *Bot) handleAddItem(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) < 2 {
		b.reply(msg.Chat.ID, "Usage: /additem <password> <username> <account_password> [email]")
		return
	}

	email := ""
	if len(args) > 2 {
		email = args[2]
	}

	item, err := b.inventory.Add(ctx, args[0], args[1], email, msg.From.ID)
	switch {
	case errors.Is(err, model.ErrDuplicateItem):
		b.reply(msg.Chat.ID, "❌ This account is already in stock or was sold before.")
		return
	case errors.Is(err, model.ErrValidation):
		b.reply(msg.Chat.ID, "Usage: /additem <password> <username> <account_password> [email]")
		return
	case err != nil:
		b.logger.Error("add item failed", zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Could not add the item.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Item #%d added. Stock: %d", item.ID, b.inventory.Available()))
}

// /tfund <password> <user_id> <amount>
func (b *Bot) handleAdjustFunds(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /tfund <password> <user_id> <amount>")
		return
	}

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Bad user id.")
		return
	}
	amount, ok := parseAmount(args[1])
	if !ok || amount == 0 {
		b.reply(msg.Chat.ID, "❌ Bad amount.")
		return
	}

	details := fmt.Sprintf("Manual adjustment by admin %d", msg.From.ID)
	if err := b.ledger.Adjust(ctx, userID, amount, details); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			b.reply(msg.Chat.ID, "❌ Unknown user.")
			return
		}
		b.logger.Error("adjust funds failed", zap.Error(err), zap.Int64("userID", userID))
		b.reply(msg.Chat.ID, "❌ Adjustment failed.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Balance of %d changed by %s.", userID, formatAmount(amount)))
	b.reply(userID, fmt.Sprintf("💰 Your balance was adjusted by %s.", formatAmount(amount)))
}

// /verify <password> <payment_id> <amount>
func (b *Bot) handleVerify(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /verify <password> <payment_id> <amount>")
		return
	}

	paymentID := args[0]
	amount, ok := parseAmount(args[1])
	if !ok || amount <= 0 {
		b.reply(msg.Chat.ID, "❌ Bad amount.")
		return
	}

	if err := b.payments.Verify(ctx, paymentID, amount, msg.From.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			b.reply(msg.Chat.ID, "❌ Payment not found or already finalized.")
			return
		}
		b.logger.Error("verify payment failed", zap.Error(err), zap.String("paymentID", paymentID))
		b.reply(msg.Chat.ID, "❌ Verification failed.")
		return
	}

	p, err := b.payments.Get(paymentID)
	if err == nil {
		b.reply(p.UserID, fmt.Sprintf("✅ Payment %s verified, %s added to your balance.",
			paymentID, formatAmount(amount)))
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Payment %s verified for %s.", paymentID, formatAmount(amount)))
}

// /reject <password> <payment_id>
func (b *Bot) handleRejectPayment(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) != 1 {
		b.reply(msg.Chat.ID, "Usage: /reject <password> <payment_id>")
		return
	}

	if err := b.payments.Reject(ctx, args[0], msg.From.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			b.reply(msg.Chat.ID, "❌ Payment not found or already finalized.")
			return
		}
		b.logger.Error("reject payment failed", zap.Error(err), zap.String("paymentID", args[0]))
		b.reply(msg.Chat.ID, "❌ Rejection failed.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Payment %s rejected.", args[0]))
}

// /prchange <password> <price>
func (b *Bot) handleChangePrice(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) != 1 {
		b.reply(msg.Chat.ID, "Usage: /prchange <password> <price>")
		return
	}

	price, ok := parseAmount(args[0])
	if !ok {
		b.reply(msg.Chat.ID, "❌ Bad price.")
		return
	}
	if err := b.inventory.SetPrice(ctx, price); err != nil {
		b.reply(msg.Chat.ID, "❌ Price must be positive.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Account price is now %s.", formatAmount(price)))
}

// /newadmin <password> <user_id>
func (b *Bot) handleNewAdmin(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) != 1 {
		b.reply(msg.Chat.ID, "Usage: /newadmin <password> <user_id>")
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Bad user id.")
		return
	}

	if !b.admins.Add(ctx, id) {
		b.reply(msg.Chat.ID, "ℹ️ Already an administrator.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ User %d is now an administrator.", id))
}

// /deladmin <password> <user_id>
func (b *Bot) handleRemoveAdmin(ctx context.Context, msg *tgbotapi.Message) {
	args, err := b.requireAdmin(msg)
	if err != nil {
		b.rejectUnauthorized(msg)
		return
	}
	if len(args) != 1 {
		b.reply(msg.Chat.ID, "Usage: /deladmin <password> <user_id>")
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Bad user id.")
		return
	}

	switch err := b.admins.Remove(ctx, id); {
	case errors.Is(err, model.ErrProtectedAdmin):
		b.reply(msg.Chat.ID, "⛔ The root administrator cannot be removed.")
	case errors.Is(err, model.ErrNotFound):
		b.reply(msg.Chat.ID, "ℹ️ Not an administrator.")
	case err != nil:
		b.reply(msg.Chat.ID, "❌ Removal failed.")
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("✅ User %d is no longer an administrator.", id))
	}
}

// /stats <password>
func (b *Bot) handleStats(msg *tgbotapi.Message) {
	if _, err := b.requireAdmin(msg); err != nil {
		b.rejectUnauthorized(msg)
		return
	}

	stats := b.store.Stats()
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"📈 Statistics\n\nUsers: %d\nTotal balance: %s\nTotal sales: %s\n"+
			"Stock: %d total, %d sold, %d available\nAdmins: %d\nTransactions: %d\nPrice: %s",
		stats.Users, formatAmount(stats.TotalBalance), formatAmount(stats.TotalSales),
		stats.TotalStock, stats.SoldStock, stats.AvailableStock,
		stats.Admins, stats.Transactions, formatAmount(b.inventory.Price())))
}

// /backup <password>
func (b *Bot) handleBackup(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := b.requireAdmin(msg); err != nil {
		b.rejectUnauthorized(msg)
		return
	}

	if err := b.store.Save(ctx); err != nil {
		b.reply(msg.Chat.ID, "❌ Backup failed, state kept in memory.")
		return
	}
	b.reply(msg.Chat.ID, "✅ Snapshot saved.")
}

// parseAmount разбирает сумму в рупиях ("50", "12.50") в пайсы.
// Округление обязательно: усечение теряет пайсу на суммах вида 0.29.
func parseAmount(raw string) (int64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(v * 100)), true
}
