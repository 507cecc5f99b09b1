package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/volumebot/internal/adapters/chain"
	"github.com/bnema/volumebot/internal/adapters/oracle/coingecko"
	"github.com/bnema/volumebot/internal/adapters/render/panel"
	"github.com/bnema/volumebot/internal/adapters/telegram"
	"github.com/bnema/volumebot/internal/application"
	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 2 * time.Minute

func newServeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	logger := a.logger

	registry, err := a.loadRegistry(ctx)
	if err != nil {
		logger.WithError(err).Error("session store is unreadable")
		return err
	}
	logger.WithField("sessions", len(registry.IDs())).Info("session store loaded")

	chainClient, err := chain.NewClient(chain.Config{RPCURL: a.cfg.RPCURL, Swap: a.cfg.Swap}, logger)
	if err != nil {
		return fmt.Errorf("wire chain client: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(a.cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("connect telegram bot: %w", err)
	}
	logger.WithField("bot", api.Self.UserName).Info("telegram bot authorized")

	clock := ports.SystemClock{}
	bot := telegram.NewBot(api, logger)
	oracle := coingecko.NewOracle(a.cfg.Oracle, chainClient)
	pool := application.NewWalletPool(chainClient, a.cfg.FeeWallet, logger)
	runner := application.NewRunner(chainClient, domain.DefaultIntSource, logger)
	summaries := application.NewSummaryService(registry, chainClient, oracle, panel.NewRenderer(), clock, logger)

	scheduler, err := application.NewScheduler(application.SchedulerDeps{
		Registry:  registry,
		Chain:     chainClient,
		Pool:      pool,
		Runner:    runner,
		Presenter: bot,
		Panels:    summaries,
		Clock:     clock,
		Rand:      domain.DefaultIntSource,
		Logger:    logger,
	}, a.cfg.Scheduler)
	if err != nil {
		return fmt.Errorf("wire scheduler: %w", err)
	}

	sessions := application.NewSessionService(registry, pool, scheduler, chainClient, a.cfg.Scheduler.Distribution.ReserveRatio, clock, logger)
	dispatcher := application.NewDispatcher(application.DispatcherDeps{
		Sessions:  sessions,
		Registry:  registry,
		Scheduler: scheduler,
		Summaries: summaries,
		Oracle:    oracle,
		Presenter: bot,
		Clock:     clock,
		Logger:    logger,
	}, a.cfg.AdminUsername)

	if err := scheduler.Resume(ctx); err != nil {
		logger.WithError(err).Warn("some jobs could not be resumed")
	}

	logger.Info("listening for telegram updates")
	runErr := bot.Run(ctx, dispatcher)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	logger.Info("stopping background jobs")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, err)
	}
	if err := registry.Save(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("save sessions: %w", err))
	}

	return runErr
}
