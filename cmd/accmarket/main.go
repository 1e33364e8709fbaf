// Package main запускает телеграм-бота магазина аккаунтов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mvolkov/accmarket-bot/internal/admin"
	"github.com/mvolkov/accmarket-bot/internal/bot"
	"github.com/mvolkov/accmarket-bot/internal/chatstore"
	"github.com/mvolkov/accmarket-bot/internal/config"
	"github.com/mvolkov/accmarket-bot/internal/inventory"
	"github.com/mvolkov/accmarket-bot/internal/ledger"
	"github.com/mvolkov/accmarket-bot/internal/middleware"
	"github.com/mvolkov/accmarket-bot/internal/ops"
	"github.com/mvolkov/accmarket-bot/internal/payment"
	"github.com/mvolkov/accmarket-bot/internal/store"
)

// stalePaymentAge — сколько платёж может ждать подтверждения, прежде
// чем будет отклонён автоматически.
const stalePaymentAge = 48 * time.Hour

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	api, err := chatstore.NewAPI(cfg.BotToken)
	if err != nil {
		sugar.Fatalw("telegram initialization error", "error", err.Error())
	}
	sugar.Infow("authorized on telegram", "username", api.Self.UserName)

	var chat chatstore.ChatStore
	if cfg.StateFile != "" {
		fileStore, err := chatstore.NewFileStore(cfg.StateFile)
		if err != nil {
			sugar.Fatalw("file store initialization error", "error", err.Error())
		}
		chat = fileStore
		sugar.Infow("using file-backed object store", "path", cfg.StateFile)
	} else {
		chat = chatstore.NewTelegramStore(api, cfg.DatabaseChatID, logger)
	}

	st := store.New(chat, logger, cfg.RootAdminID, store.DefaultScanLimit)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	st.Load(loadCtx)
	cancelLoad()

	ledgerEngine := ledger.NewEngine(st, logger)
	inventoryEngine := inventory.NewEngine(st, logger, cfg.AccountPrice)
	paymentEngine := payment.NewEngine(st, logger)
	adminRegistry := admin.NewRegistry(st, logger, cfg.RootAdminID)

	auditChatID := cfg.DatabaseChatID
	tgBot := bot.New(api, logger, st, ledgerEngine, inventoryEngine, paymentEngine,
		adminRegistry, cfg.AdminPassword, auditChatID)

	opsAuth := middleware.NewTokenAuth(cfg.OpsToken)
	opsHandler := ops.NewHandler(st, logger, opsAuth)

	server := &http.Server{
		Addr:    cfg.OpsAddress,
		Handler: opsHandler.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Приём обновлений Telegram
	g.Go(func() error {
		return tgBot.Run(ctx)
	})

	// Служебная HTTP-поверхность
	g.Go(func() error {
		sugar.Infow("starting ops server", "addr", cfg.OpsAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ops server error: %w", err)
		}
		return nil
	})

	// Периодический снапшот и отклонение зависших платежей
	g.Go(func() error {
		ticker := time.NewTicker(cfg.BackupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				paymentEngine.ExpireStale(ctx, stalePaymentAge)
				if err := st.Save(ctx); err != nil {
					sugar.Warnw("periodic snapshot failed", "error", err.Error())
				}
			}
		}
	})

	// Graceful shutdown при отмене контекста
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown error: %w", err)
		}

		// Прощальный снапшот, чтобы не потерять состояние между запусками.
		if err := st.Save(shutdownCtx); err != nil {
			sugar.Warnw("final snapshot failed", "error", err.Error())
		}
		sugar.Info("stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
