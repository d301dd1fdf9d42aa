package db

import (
	"testing"
	"time"
)

func validConfig() *AppConfig {
	target := 60
	return &AppConfig{
		Timezone:             "America/New_York",
		ScorecardChannelName: "scorecard",
		WeeklySummaryDay:     "monday",
		WeeklySummaryTime:    "08:00",
		Schedule: ScheduleConfig{
			DailyCheckinTime:      "17:00",
			FirstFollowupTime:     "09:00",
			FollowupIntervalHours: 2,
			MaxFollowupsPerDay:    3,
		},
		Team: []TeamMember{
			{Name: "Jane", SlackID: "U_JANE", ManagerSlackID: "U_BOSS", Role: "SDR", Target: &target, TargetLabel: TargetLabelFor(60)},
		},
	}
}

func TestValidTime(t *testing.T) {
	valid := []string{"00:00", "09:30", "23:59"}
	for _, v := range valid {
		if !ValidTime(v) {
			t.Errorf("ValidTime(%q): want true", v)
		}
	}
	invalid := []string{"24:00", "9:30", "09:60", "0930", "noon", ""}
	for _, v := range invalid {
		if ValidTime(v) {
			t.Errorf("ValidTime(%q): want false", v)
		}
	}
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("17:45")
	if err != nil {
		t.Fatal(err)
	}
	if hour != 17 || minute != 45 {
		t.Errorf("ParseClock(17:45): got %d:%d", hour, minute)
	}
	if _, _, err := ParseClock("25:00"); err == nil {
		t.Error("ParseClock(25:00): want error")
	}
}

func TestDayNumber(t *testing.T) {
	day, ok := DayNumber("Monday")
	if !ok || day != time.Monday {
		t.Errorf("DayNumber(Monday): got %v, %v", day, ok)
	}
	if day, ok := DayNumber(" friday "); !ok || day != time.Friday {
		t.Errorf("DayNumber( friday ): got %v, %v", day, ok)
	}
	if _, ok := DayNumber("someday"); ok {
		t.Error("DayNumber(someday): want false")
	}
}

func TestValidateAppConfig(t *testing.T) {
	if err := ValidateAppConfig(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty timezone", func(c *AppConfig) { c.Timezone = "" }},
		{"bogus timezone", func(c *AppConfig) { c.Timezone = "Not/AZone" }},
		{"empty team", func(c *AppConfig) { c.Team = nil }},
		{"bad checkin time", func(c *AppConfig) { c.Schedule.DailyCheckinTime = "5pm" }},
		{"bad followup time", func(c *AppConfig) { c.Schedule.FirstFollowupTime = "24:00" }},
		{"bad summary time", func(c *AppConfig) { c.WeeklySummaryTime = "noon" }},
		{"bad summary day", func(c *AppConfig) { c.WeeklySummaryDay = "someday" }},
		{"zero interval", func(c *AppConfig) { c.Schedule.FollowupIntervalHours = 0 }},
		{"negative followups", func(c *AppConfig) { c.Schedule.MaxFollowupsPerDay = -1 }},
		{"followups past midnight", func(c *AppConfig) {
			c.Schedule.FirstFollowupTime = "20:00"
			c.Schedule.FollowupIntervalHours = 3
			c.Schedule.MaxFollowupsPerDay = 3
		}},
		{"duplicate slack id", func(c *AppConfig) {
			c.Team = append(c.Team, TeamMember{Name: "Echo", SlackID: "U_JANE", ManagerSlackID: "U_BOSS"})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := ValidateAppConfig(cfg); err == nil {
				t.Error("want validation error")
			}
		})
	}
}

func TestFollowupBudgetBoundary(t *testing.T) {
	// Last wave exactly at 23:00 is still a valid schedule.
	cfg := validConfig()
	cfg.Schedule.FirstFollowupTime = "19:00"
	cfg.Schedule.FollowupIntervalHours = 2
	cfg.Schedule.MaxFollowupsPerDay = 3
	if err := ValidateAppConfig(cfg); err != nil {
		t.Errorf("last wave at 23:00 rejected: %v", err)
	}
}

func TestMemberByID(t *testing.T) {
	cfg := validConfig()
	if m := cfg.MemberByID("U_JANE"); m == nil || m.Name != "Jane" {
		t.Errorf("MemberByID(U_JANE): got %+v", m)
	}
	if m := cfg.MemberByID("U_NOBODY"); m != nil {
		t.Errorf("MemberByID(U_NOBODY): got %+v", m)
	}
}

func TestPlaceholder(t *testing.T) {
	if !(TeamMember{SlackID: "REPLACE_WITH_ID"}).Placeholder() {
		t.Error("REPLACE_WITH_ID should be a placeholder")
	}
	if (TeamMember{SlackID: "U_REAL"}).Placeholder() {
		t.Error("U_REAL should not be a placeholder")
	}
}
