package scheduler_test

import (
	"reflect"
	"testing"
	"time"

	"PulseBot/db"
	"PulseBot/scheduler"
)

type nopMessenger struct{}

func (nopMessenger) SendCheckinPrompt(*db.TeamMember, string) error { return nil }
func (nopMessenger) SendFollowup(*db.TeamMember, string, int) error { return nil }
func (nopMessenger) PostWeeklyReport(string) error                  { return nil }

func testConfig(maxFollowups int) *db.AppConfig {
	return &db.AppConfig{
		Timezone:             "UTC",
		ScorecardChannelName: "scorecard",
		WeeklySummaryDay:     "monday",
		WeeklySummaryTime:    "08:00",
		Schedule: db.ScheduleConfig{
			DailyCheckinTime:      "17:00",
			FirstFollowupTime:     "09:00",
			FollowupIntervalHours: 2,
			MaxFollowupsPerDay:    maxFollowups,
		},
		Team: []db.TeamMember{{Name: "A", SlackID: "U_A", ManagerSlackID: "U_M"}},
	}
}

func TestPreviousBusinessDay(t *testing.T) {
	cases := []struct {
		name string
		now  string
		want string
	}{
		{"monday goes back to friday", "2026-08-31", "2026-08-28"},
		{"sunday goes back to friday", "2026-08-30", "2026-08-28"},
		{"saturday goes back to friday", "2026-08-29", "2026-08-28"},
		{"wednesday goes back one day", "2026-08-26", "2026-08-25"},
		{"tuesday goes back one day", "2026-08-25", "2026-08-24"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now, err := time.Parse(db.DateLayout, tc.now)
			if err != nil {
				t.Fatal(err)
			}
			got := scheduler.PreviousBusinessDay(now).Format(db.DateLayout)
			if got != tc.want {
				t.Errorf("PreviousBusinessDay(%s): got %s, want %s", tc.now, got, tc.want)
			}
		})
	}
}

func TestStartArmsAllJobs(t *testing.T) {
	s := scheduler.New(nopMessenger{}, nil)
	defer s.Stop()

	if err := s.Start(testConfig(3)); err != nil {
		t.Fatal(err)
	}

	want := []string{"daily-checkin", "followup-0", "followup-1", "followup-2", "weekly-summary"}
	if got := s.Jobs(); !reflect.DeepEqual(got, want) {
		t.Errorf("jobs: got %v, want %v", got, want)
	}
}

func TestRescheduleReplacesRegistry(t *testing.T) {
	s := scheduler.New(nopMessenger{}, nil)
	defer s.Stop()

	if err := s.Start(testConfig(3)); err != nil {
		t.Fatal(err)
	}
	if err := s.RescheduleAll(testConfig(1)); err != nil {
		t.Fatal(err)
	}

	want := []string{"daily-checkin", "followup-0", "weekly-summary"}
	if got := s.Jobs(); !reflect.DeepEqual(got, want) {
		t.Errorf("jobs after reschedule: got %v, want %v", got, want)
	}
}

func TestRescheduleRejectsBadTimezoneAndKeepsNothingArmed(t *testing.T) {
	s := scheduler.New(nopMessenger{}, nil)
	defer s.Stop()

	if err := s.Start(testConfig(2)); err != nil {
		t.Fatal(err)
	}

	bad := testConfig(2)
	bad.Timezone = "Not/AZone"
	if err := s.RescheduleAll(bad); err == nil {
		t.Fatal("want error for invalid timezone")
	}

	// A failed rebuild must not leave stale jobs armed.
	if got := s.Jobs(); len(got) != 0 {
		t.Errorf("jobs after failed reschedule: got %v, want none", got)
	}
}

func TestStopClearsRegistry(t *testing.T) {
	s := scheduler.New(nopMessenger{}, nil)
	if err := s.Start(testConfig(0)); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	if got := s.Jobs(); len(got) != 0 {
		t.Errorf("jobs after stop: got %v, want none", got)
	}
}
