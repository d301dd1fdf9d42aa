// Package scheduler arms the recurring jobs that drive the check-in
// lifecycle: the weekday prompt broadcast, the follow-up waves, and the
// weekly scorecard.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/robfig/cron/v3"

	"PulseBot/db"
	"PulseBot/stats"
)

var logger = log.New("module", "scheduler")

// Messenger is the delivery contract the scheduler expects from the chat
// transport. Delivery errors are isolated per member by the caller.
type Messenger interface {
	SendCheckinPrompt(member *db.TeamMember, date string) error
	SendFollowup(member *db.TeamMember, date string, attempt int) error
	PostWeeklyReport(report string) error
}

// Scheduler owns the armed jobs as an explicit name-to-entry registry on a
// single cron runner, so a rebuild can tear everything down at once instead
// of chasing ambient global timers.
type Scheduler struct {
	messenger Messenger
	engine    *stats.Engine

	mu   sync.Mutex
	cron *cron.Cron
	jobs map[string]cron.EntryID
}

func New(messenger Messenger, engine *stats.Engine) *Scheduler {
	return &Scheduler{
		messenger: messenger,
		engine:    engine,
		jobs:      map[string]cron.EntryID{},
	}
}

// Start arms all jobs from cfg.
func (s *Scheduler) Start(cfg *db.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arm(cfg)
}

// RescheduleAll cancels every armed job and re-arms from a fresh
// configuration snapshot. The old runner is fully stopped before the new
// one starts, so no job can fire on a stale schedule.
func (s *Scheduler) RescheduleAll(cfg *db.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
	logger.Info("rescheduling all jobs")
	return s.arm(cfg)
}

// Stop cancels every armed job and waits for running ones to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}

func (s *Scheduler) teardown() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.cron = nil
	}
	s.jobs = map[string]cron.EntryID{}
}

// Jobs returns the names of the currently armed jobs, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) arm(cfg *db.AppConfig) error {
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	c := cron.New(cron.WithLocation(loc))
	jobs := map[string]cron.EntryID{}

	checkinHour, checkinMinute, err := db.ParseClock(cfg.Schedule.DailyCheckinTime)
	if err != nil {
		return fmt.Errorf("scheduler: daily check-in time: %w", err)
	}
	id, err := c.AddFunc(fmt.Sprintf("%d %d * * 1-5", checkinMinute, checkinHour), s.runDailyCheckin)
	if err != nil {
		return fmt.Errorf("scheduler: arm daily-checkin: %w", err)
	}
	jobs["daily-checkin"] = id

	followHour, followMinute, err := db.ParseClock(cfg.Schedule.FirstFollowupTime)
	if err != nil {
		return fmt.Errorf("scheduler: first follow-up time: %w", err)
	}
	for attempt := 0; attempt < cfg.Schedule.MaxFollowupsPerDay; attempt++ {
		attempt := attempt
		hour := followHour + attempt*cfg.Schedule.FollowupIntervalHours
		id, err := c.AddFunc(fmt.Sprintf("%d %d * * 1-5", followMinute, hour), func() {
			s.runFollowup(attempt)
		})
		if err != nil {
			return fmt.Errorf("scheduler: arm followup-%d: %w", attempt, err)
		}
		jobs[fmt.Sprintf("followup-%d", attempt)] = id
	}

	summaryDay, ok := db.DayNumber(cfg.WeeklySummaryDay)
	if !ok {
		return fmt.Errorf("scheduler: invalid weekly summary day %q", cfg.WeeklySummaryDay)
	}
	summaryHour, summaryMinute, err := db.ParseClock(cfg.WeeklySummaryTime)
	if err != nil {
		return fmt.Errorf("scheduler: weekly summary time: %w", err)
	}
	id, err = c.AddFunc(fmt.Sprintf("%d %d * * %d", summaryMinute, summaryHour, int(summaryDay)), s.runWeeklySummary)
	if err != nil {
		return fmt.Errorf("scheduler: arm weekly-summary: %w", err)
	}
	jobs["weekly-summary"] = id

	c.Start()
	s.cron = c
	s.jobs = jobs

	logger.Info("scheduled jobs registered",
		"daily", cfg.Schedule.DailyCheckinTime,
		"followups", cfg.Schedule.MaxFollowupsPerDay,
		"summary", fmt.Sprintf("%s %s", cfg.WeeklySummaryDay, cfg.WeeklySummaryTime),
		"tz", cfg.Timezone)
	return nil
}

// PreviousBusinessDay steps back to the last weekday: Monday and Sunday
// both resolve to the preceding Friday.
func PreviousBusinessDay(now time.Time) time.Time {
	switch now.Weekday() {
	case time.Monday:
		return now.AddDate(0, 0, -3)
	case time.Sunday:
		return now.AddDate(0, 0, -2)
	default:
		return now.AddDate(0, 0, -1)
	}
}

// runDailyCheckin prompts every real, present member for today and records
// the lifecycle row. Per-member failures are logged and the loop continues.
func (s *Scheduler) runDailyCheckin() {
	cfg, err := db.LoadAppConfig()
	if err != nil {
		logger.Error("daily-checkin: load config", "err", err)
		return
	}
	if db.IsPaused() {
		logger.Info("daily-checkin skipped: bot is paused")
		return
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("daily-checkin: timezone", "err", err)
		return
	}
	today := time.Now().In(loc).Format(db.DateLayout)
	logger.Info("running daily check-in", "date", today)

	for i := range cfg.Team {
		member := &cfg.Team[i]
		if member.Placeholder() {
			continue
		}
		if db.IsOoo(member.SlackID, today) {
			logger.Info("member is out of office, skipping prompt", "user", member.SlackID, "date", today)
			continue
		}
		if err := s.messenger.SendCheckinPrompt(member, today); err != nil {
			logger.Error("failed to send check-in prompt", "user", member.SlackID, "err", err)
			continue
		}
		if err := db.MarkCheckinSent(member.SlackID, member.Name, today); err != nil {
			logger.Error("failed to mark check-in sent", "user", member.SlackID, "err", err)
		}
	}
}

// runFollowup reminds everyone still pending for the previous business day.
func (s *Scheduler) runFollowup(attempt int) {
	cfg, err := db.LoadAppConfig()
	if err != nil {
		logger.Error("followup: load config", "err", err)
		return
	}
	if db.IsPaused() {
		logger.Info("follow-up skipped: bot is paused", "attempt", attempt+1)
		return
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("followup: timezone", "err", err)
		return
	}
	targetDate := PreviousBusinessDay(time.Now().In(loc)).Format(db.DateLayout)
	logger.Info("running follow-up wave", "attempt", attempt+1, "date", targetDate)

	pending, err := db.GetPendingFollowups(targetDate, cfg.Schedule.MaxFollowupsPerDay)
	if err != nil {
		logger.Error("followup: list pending", "err", err)
		return
	}

	for _, entry := range pending {
		member := cfg.MemberByID(entry.SlackID)
		if member == nil {
			logger.Warn("pending check-in for unknown member", "user", entry.SlackID, "date", entry.Date)
			continue
		}
		if err := s.messenger.SendFollowup(member, targetDate, entry.FollowupCount+1); err != nil {
			logger.Error("failed to send follow-up", "user", member.SlackID, "err", err)
			continue
		}
		if err := db.IncrementFollowupCount(entry.SlackID, targetDate); err != nil {
			logger.Error("failed to bump follow-up count", "user", entry.SlackID, "err", err)
		}
	}
}

// runWeeklySummary posts the weekly report, then sweeps lifecycle records
// past the retention window.
func (s *Scheduler) runWeeklySummary() {
	cfg, err := db.LoadAppConfig()
	if err != nil {
		logger.Error("weekly-summary: load config", "err", err)
		return
	}
	if db.IsPaused() {
		logger.Info("weekly summary skipped: bot is paused")
		return
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("weekly-summary: timezone", "err", err)
		return
	}
	now := time.Now().In(loc)
	logger.Info("running weekly summary")

	report, err := s.engine.WeeklyReport(cfg, now)
	if err != nil {
		logger.Error("failed to build weekly report", "err", err)
	} else if err := s.messenger.PostWeeklyReport(report); err != nil {
		logger.Error("failed to post weekly report", "err", err)
	}

	cutoff := now.AddDate(0, 0, -7).Format(db.DateLayout)
	purged, err := db.PurgeCheckinsBefore(cutoff)
	if err != nil {
		logger.Error("failed to purge old lifecycle records", "err", err)
	} else if purged > 0 {
		logger.Info("purged old lifecycle records", "count", purged, "cutoff", cutoff)
	}
}
