package db

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm/clause"
)

const (
	appConfigKey = "app_config"
	pausedKey    = "paused"
)

// ScheduleConfig holds the check-in and follow-up timings, all interpreted
// in the configured timezone.
type ScheduleConfig struct {
	DailyCheckinTime      string `json:"daily_checkin_time"`
	FirstFollowupTime     string `json:"first_followup_time"`
	FollowupIntervalHours int    `json:"followup_interval_hours"`
	MaxFollowupsPerDay    int    `json:"max_followups_per_day"`
}

// TeamMember is one person the bot prompts. Target is optional; when set,
// answers and averages are judged against it.
type TeamMember struct {
	Name           string `json:"name"`
	SlackID        string `json:"slack_id"`
	ManagerSlackID string `json:"manager_slack_id"`
	Role           string `json:"role"`
	Question       string `json:"question"`
	InputType      string `json:"input_type"`
	Target         *int   `json:"target"`
	TargetLabel    string `json:"target_label"`
}

// Placeholder reports whether the member still carries a seeding-time
// placeholder id and must be skipped by every broadcast.
func (m TeamMember) Placeholder() bool {
	return strings.HasPrefix(m.SlackID, "REPLACE")
}

// TargetLabelFor renders the display label for a numeric target.
func TargetLabelFor(target int) string {
	return fmt.Sprintf("≥%d%%", target)
}

// AppConfig is the whole deployment configuration, stored as one JSON blob.
// Handlers and jobs load a fresh snapshot at every invocation instead of
// caching it across suspension points.
type AppConfig struct {
	Timezone             string         `json:"timezone"`
	Schedule             ScheduleConfig `json:"schedule"`
	ScorecardChannelName string         `json:"scorecard_channel_name"`
	WeeklySummaryDay     string         `json:"weekly_summary_day"`
	WeeklySummaryTime    string         `json:"weekly_summary_time"`
	Team                 []TeamMember   `json:"team"`
}

func (c *AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *AppConfig) MemberByID(slackID string) *TeamMember {
	for i := range c.Team {
		if c.Team[i].SlackID == slackID {
			return &c.Team[i]
		}
	}
	return nil
}

var clockRe = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ValidTime reports whether v is a well-formed HH:MM clock value.
func ValidTime(v string) bool {
	if !clockRe.MatchString(v) {
		return false
	}
	_, _, err := ParseClock(v)
	return err == nil
}

// ParseClock splits an HH:MM string into hour and minute.
func ParseClock(v string) (hour, minute int, err error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: %q is not HH:MM", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("config: %q has an invalid hour", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("config: %q has an invalid minute", v)
	}
	return hour, minute, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DayNumber maps a weekday name (any case) to its time.Weekday.
func DayNumber(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}

// ValidateAppConfig rejects a configuration that the scheduler or the
// broadcast loop could not act on. Called on every save.
func ValidateAppConfig(cfg *AppConfig) error {
	if cfg.Timezone == "" {
		return fmt.Errorf("config: timezone is required")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q", cfg.Timezone)
	}
	if len(cfg.Team) == 0 {
		return fmt.Errorf("config: team is empty")
	}
	if !ValidTime(cfg.Schedule.DailyCheckinTime) {
		return fmt.Errorf("config: invalid daily check-in time %q", cfg.Schedule.DailyCheckinTime)
	}
	if !ValidTime(cfg.Schedule.FirstFollowupTime) {
		return fmt.Errorf("config: invalid first follow-up time %q", cfg.Schedule.FirstFollowupTime)
	}
	if !ValidTime(cfg.WeeklySummaryTime) {
		return fmt.Errorf("config: invalid weekly summary time %q", cfg.WeeklySummaryTime)
	}
	if _, ok := DayNumber(cfg.WeeklySummaryDay); !ok {
		return fmt.Errorf("config: invalid weekly summary day %q", cfg.WeeklySummaryDay)
	}
	if cfg.Schedule.FollowupIntervalHours < 1 {
		return fmt.Errorf("config: follow-up interval must be at least 1 hour")
	}
	if cfg.Schedule.MaxFollowupsPerDay < 0 {
		return fmt.Errorf("config: max follow-ups per day cannot be negative")
	}
	if cfg.Schedule.MaxFollowupsPerDay > 0 {
		firstHour, _, err := ParseClock(cfg.Schedule.FirstFollowupTime)
		if err != nil {
			return err
		}
		lastHour := firstHour + (cfg.Schedule.MaxFollowupsPerDay-1)*cfg.Schedule.FollowupIntervalHours
		if lastHour > 23 {
			return fmt.Errorf("config: follow-up waves run past midnight (last wave at hour %d)", lastHour)
		}
	}

	seen := make(map[string]string, len(cfg.Team))
	for _, m := range cfg.Team {
		if other, dup := seen[m.SlackID]; dup {
			return fmt.Errorf("config: %s and %s share the slack id %s", other, m.Name, m.SlackID)
		}
		seen[m.SlackID] = m.Name
		if m.Placeholder() {
			logger.Warn("team member has a placeholder slack id and will be skipped", "name", m.Name)
		}
	}
	return nil
}

// LoadAppConfig fetches the current configuration snapshot.
func LoadAppConfig() (*AppConfig, error) {
	var rec ConfigRecord
	if err := DB.Where("key = ?", appConfigKey).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	var cfg AppConfig
	if err := json.Unmarshal([]byte(rec.Value), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

// SaveAppConfig validates and replaces the configuration wholesale.
func SaveAppConfig(cfg *AppConfig) error {
	if err := ValidateAppConfig(cfg); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	rec := ConfigRecord{Key: appConfigKey, Value: string(raw), UpdatedAt: time.Now().UTC()}
	return DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

// IsPaused reports whether broadcasts are suspended. Missing flag means
// running.
func IsPaused() bool {
	var rec ConfigRecord
	err := DB.Where("key = ?", pausedKey).First(&rec).Error
	if err != nil {
		return false
	}
	return rec.Value == "true"
}

func SetPaused(paused bool) error {
	rec := ConfigRecord{Key: pausedKey, Value: strconv.FormatBool(paused), UpdatedAt: time.Now().UTC()}
	return DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}
