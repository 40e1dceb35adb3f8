// Scheduler binary: the external calendar trigger for the weekly contest.
// It opens the next window on configured creation days and fires the cycle
// rollover (winner cache invalidation) when a new cycle starts. The core
// stays schedule-agnostic; this process only calls the admin endpoints.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelojr/cineclube/internal/platform/config"
	"github.com/marcelojr/cineclube/internal/platform/logger"
)

const checkPeriod = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	if cfg.AdminToken == "" {
		logger.Fatal("scheduler requires ADMIN_TOKEN")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var lastOpenDay, lastRolloverDay string

	logger.Info("scheduler started", "api", cfg.SchedulerAPIBase, "trigger_hour", cfg.SchedulerTriggerHour)

	ticker := time.NewTicker(checkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}

		now := time.Now().UTC()
		day := now.Format("2006-01-02")

		// Window creation: once per creation day, at the configured hour.
		if allowsCreation(cfg, now.Weekday()) && now.Hour() >= cfg.SchedulerTriggerHour && lastOpenDay != day {
			if err := post(ctx, client, cfg, "/windows"); err != nil {
				logger.Error("failed to open window", "err", err)
			} else {
				logger.Info("window creation triggered", "day", day)
			}
			// Mark the attempt either way; a 409 means it already exists.
			lastOpenDay = day
		}

		// Cycle rollover: once, right after a new cycle begins.
		if now.Weekday() == cfg.CycleStart && lastRolloverDay != day {
			if err := post(ctx, client, cfg, "/rollover"); err != nil {
				logger.Error("failed to trigger rollover", "err", err)
			} else {
				logger.Info("cycle rollover triggered", "day", day)
			}
			lastRolloverDay = day
		}
	}
}

func allowsCreation(cfg config.Config, day time.Weekday) bool {
	for _, d := range cfg.CreationWeekdays {
		if d == day {
			return true
		}
	}
	return false
}

func post(ctx context.Context, client *http.Client, cfg config.Config, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.SchedulerAPIBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Admin-Token", cfg.AdminToken)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return nil
}
