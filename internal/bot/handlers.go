package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mvolkov/accmarket-bot/internal/model"
	"github.com/mvolkov/accmarket-bot/internal/payment"
	"github.com/mvolkov/accmarket-bot/internal/validation"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	if from == nil {
		return
	}

	created := b.store.EnsureUser(from.ID, from.UserName, from.FirstName, from.LastName)
	if created {
		b.audit(fmt.Sprintf("👤 NEW USER REGISTERED\nUser ID: %d\nUsername: @%s\nName: %s %s\nTime: %s",
			from.ID, from.UserName, from.FirstName, from.LastName, time.Now().Format(time.RFC3339)))
		if err := b.store.Save(ctx); err != nil {
			b.logger.Warn("snapshot after registration failed", zap.Error(err))
		}
	}
	b.store.Touch(from.ID)

	text := fmt.Sprintf(
		"👋 Welcome *%s*!\n\n"+
			"Each account costs *%s*.\n\n"+
			"💰 Add Funds — top up your balance\n"+
			"🛒 Buy Accounts — purchase accounts\n"+
			"📊 Check Balance — balance and history\n"+
			"📦 Stock — available accounts",
		from.FirstName, formatAmount(b.inventory.Price()))

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = mainMenu()
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Warn("send welcome failed", zap.Error(err))
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	b.store.Touch(msg.From.ID)

	switch msg.Text {
	case buttonAddFunds:
		b.handleAddFunds(ctx, msg)
	case buttonBuy:
		b.handleBuyMenu(msg)
	case buttonBalance:
		b.handleBalance(msg)
	case buttonStock:
		b.handleStock(msg)
	case buttonContact:
		b.reply(msg.Chat.ID, "📞 For help contact the administrator.")
	default:
		b.handlePossibleReference(ctx, msg)
	}
}

// handlePossibleReference принимает код подтверждения (UTR), пока у
// пользователя есть неподтверждённый платёж.
func (b *Bot) handlePossibleReference(ctx context.Context, msg *tgbotapi.Message) {
	ref := validation.NormalizeReference(msg.Text)
	if !validation.IsValidReference(ref) {
		b.reply(msg.Chat.ID, "ℹ️ Use the menu buttons below, or send /start.")
		return
	}

	pending := b.payments.PendingFor(msg.From.ID)
	if pending == nil {
		b.reply(msg.Chat.ID, "You have no pending payment. Tap 💰 Add Funds first.")
		return
	}

	if err := b.payments.AttachReference(ctx, pending.ID, ref); err != nil {
		b.logger.Error("attach reference failed", zap.Error(err), zap.String("paymentID", pending.ID))
		b.reply(msg.Chat.ID, "❌ Could not record your reference, try again.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ Reference %s recorded for payment %s.\nAn administrator will verify it shortly.", ref, pending.ID))
	b.notifyAdmins(fmt.Sprintf("💳 Payment %s from user %d awaits verification.\nUTR: %s\nVerify: /verify <password> %s <amount>",
		pending.ID, msg.From.ID, ref, pending.ID))
}

func (b *Bot) handleAddFunds(ctx context.Context, msg *tgbotapi.Message) {
	b.store.EnsureUser(msg.From.ID, msg.From.UserName, msg.From.FirstName, msg.From.LastName)

	paymentID := payment.NewPaymentID(msg.From.ID)
	if _, err := b.payments.Create(ctx, paymentID, msg.From.ID); err != nil {
		if errors.Is(err, model.ErrPaymentExists) {
			// Тот же пользователь в ту же секунду; прежний платёж ещё жив.
			b.reply(msg.Chat.ID, "You already have a pending payment. Send your UTR when ready.")
			return
		}
		b.logger.Error("create payment failed", zap.Error(err), zap.Int64("userID", msg.From.ID))
		b.reply(msg.Chat.ID, "❌ Could not start a payment, try again later.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"💰 Payment %s created.\n\n"+
			"1. Transfer the amount to the account from 📞 Contact.\n"+
			"2. Reply here with the bank UTR / reference code.\n"+
			"3. An administrator verifies it and your balance is topped up.",
		paymentID))
}

func (b *Bot) handleBalance(msg *tgbotapi.Message) {
	balance, err := b.ledger.Balance(msg.From.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "Send /start first.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Balance: %s\n", formatAmount(balance))

	history := b.ledger.HistoryFor(msg.From.ID, 5)
	if len(history) > 0 {
		sb.WriteString("\nRecent operations:\n")
		for _, tr := range history {
			fmt.Fprintf(&sb, "• %s — %s (%s)\n",
				tr.CreatedAt.Format("02.01.2006 15:04"), formatAmount(tr.Amount), tr.Kind)
		}
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleStock(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"📦 Accounts in stock: %d\nPrice per account: %s",
		b.inventory.Available(), formatAmount(b.inventory.Price())))
}

func (b *Bot) handleBuyMenu(msg *tgbotapi.Message) {
	available := b.inventory.Available()
	if available == 0 {
		b.reply(msg.Chat.ID, "📭 Stock is empty, check back later.")
		return
	}
	b.replyWithMarkup(msg.Chat.ID,
		fmt.Sprintf("🛒 %d accounts available at %s each.\nChoose a quantity:",
			available, formatAmount(b.inventory.Price())),
		quantityMenu())
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("answer callback failed", zap.Error(err))
	}
	if query.Message == nil || query.From == nil {
		return
	}

	raw, found := strings.CutPrefix(query.Data, "buy_")
	if !found {
		return
	}
	quantity, ok := validation.ParseQuantity(raw)
	if !ok {
		return
	}

	b.purchase(ctx, query.Message.Chat.ID, query.From.ID, quantity)
}

func (b *Bot) purchase(ctx context.Context, chatID, userID int64, quantity int) {
	sold, total, err := b.inventory.Purchase(ctx, userID, quantity)
	switch {
	case errors.Is(err, model.ErrInsufficientStock):
		b.reply(chatID, fmt.Sprintf("❌ Not enough stock: only %d available.", b.inventory.Available()))
		return
	case errors.Is(err, model.ErrInsufficientFunds):
		balance, _ := b.ledger.Balance(userID)
		b.reply(chatID, fmt.Sprintf(
			"❌ Insufficient funds: you need %s, balance is %s.\nTap 💰 Add Funds.",
			formatAmount(int64(quantity)*b.inventory.Price()), formatAmount(balance)))
		return
	case errors.Is(err, model.ErrNotFound):
		b.reply(chatID, "Send /start first.")
		return
	case err != nil:
		b.logger.Error("purchase failed", zap.Error(err), zap.Int64("userID", userID))
		b.reply(chatID, "❌ Purchase failed, try again later.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Purchased %d accounts for %s:\n\n", len(sold), formatAmount(total))
	for _, it := range sold {
		fmt.Fprintf(&sb, "👤 %s\n🔑 %s\n📧 %s\n\n", it.Username, it.Password, it.Email)
	}
	sb.WriteString("⚠️ Save these credentials now, they are shown once.")
	b.reply(chatID, sb.String())

	b.audit(fmt.Sprintf("🛒 SALE\nUser: %d\nQuantity: %d\nTotal: %s\nTime: %s",
		userID, len(sold), formatAmount(total), time.Now().Format(time.RFC3339)))
}

func (b *Bot) notifyAdmins(text string) {
	for _, id := range b.admins.List() {
		if _, err := b.api.Send(tgbotapi.NewMessage(id, text)); err != nil {
			b.logger.Warn("notify admin failed", zap.Error(err), zap.Int64("adminID", id))
		}
	}
}
