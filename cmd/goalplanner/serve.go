package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"goal-planner/internal/bot"
	"goal-planner/internal/service"
)

const jobTimeout = 30 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the purge sweep, the daily report and, with a token, the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	scheduler := service.NewSchedulerService(loc, a.log)

	if a.cfg.PurgeInterval > 0 {
		job := service.PurgeJob(a.engine.Deletes, a.cfg.PurgeAge, jobTimeout, a.log)
		if _, err := scheduler.ScheduleInterval(a.cfg.PurgeInterval, job); err != nil {
			return fmt.Errorf("schedule purge: %w", err)
		}
	}

	var telegramBot *bot.Bot
	if a.cfg.TelegramToken != "" {
		telegramBot, err = bot.New(a.cfg.TelegramToken, a.engine, a.reminders, a.log)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		if a.cfg.ReportTime != "" {
			if _, err := scheduler.ScheduleDaily(a.cfg.ReportTime, func() {
				jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
				defer cancel()
				if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.Error("daily report", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("schedule reports: %w", err)
			}
		}
	} else {
		a.log.Warn("telegram token not set, running without the bot")
	}

	scheduler.Start()
	defer scheduler.Stop()
	a.log.Info("goal planner started", "jobs", scheduler.Entries(), "purge_interval", a.cfg.PurgeInterval.String())

	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bot stopped: %w", err)
		}
	} else {
		<-ctx.Done()
	}
	a.log.Info("shutdown complete")
	return nil
}
