package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"goal-planner/internal/config"
	"goal-planner/internal/logging"
	"goal-planner/internal/repository"
	"goal-planner/internal/service"
)

// app holds what every subcommand needs. It is opened once per process,
// before the first command runs.
type app struct {
	configPath string

	cfg       config.Config
	log       *logging.Logger
	db        *gorm.DB
	engine    *service.Engine
	reminders *service.ReminderService
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "goalplanner",
		Short:         "Goal planner - goals, dependency-ordered tasks and daily plans",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./goalplanner.yaml)")

	root.AddCommand(serveCmd(a))
	root.AddCommand(userCmd(a))
	root.AddCommand(goalCmd(a))
	root.AddCommand(taskCmd(a))
	root.AddCommand(inboxCmd(a))
	root.AddCommand(planCmd(a))
	root.AddCommand(purgeCmd(a))
	root.AddCommand(historyCmd(a))
	return root
}

func (a *app) open(ctx context.Context) error {
	if a.engine != nil {
		return nil
	}

	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logging.NewLogger(cfg.Log.Dir, logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Close()
		return fmt.Errorf("db: %w", err)
	}
	store := repository.NewStore(db)
	clock := service.NewClock(loc)

	a.cfg = cfg
	a.log = log
	a.db = db
	a.engine = service.NewEngine(store, service.Options{
		Clock:                 clock,
		FocusThresholdMinutes: cfg.FocusThresholdMinutes,
		Logger:                log,
	})
	a.reminders = service.NewReminderService(store, clock)

	if _, err := a.engine.WarmMilestones(ctx); err != nil {
		return fmt.Errorf("load milestones: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.log != nil {
		_ = a.log.Close()
	}
}
