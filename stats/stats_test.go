package stats_test

import (
	"strings"
	"testing"
	"time"

	"PulseBot/db"
	"PulseBot/stats"
)

// fakeResponses serves canned rows filtered by the queried range.
type fakeResponses struct {
	rows []db.Response
}

func (f fakeResponses) ResponsesForMember(slackID, fromDate, toDate string) ([]db.Response, error) {
	var out []db.Response
	for _, r := range f.rows {
		if r.SlackID == slackID && r.Date >= fromDate && r.Date <= toDate {
			out = append(out, r)
		}
	}
	return out, nil
}

func intPtr(v int) *int { return &v }

func TestComputeAverage(t *testing.T) {
	cases := []struct {
		name   string
		values []int
		want   int
		wantOK bool
	}{
		{"empty", nil, 0, false},
		{"single", []int{40}, 40, true},
		{"exact", []int{80, 60}, 70, true},
		{"half rounds up", []int{81, 80}, 81, true},
		{"below half rounds down", []int{80, 80, 81}, 80, true},
		{"low half rounds up", []int{20, 21}, 21, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rows []db.Response
			for _, v := range tc.values {
				rows = append(rows, db.Response{Value: v})
			}
			got, ok := stats.ComputeAverage(rows)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("avg: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWeekStart(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		date string
		want string
	}{
		{"2026-08-24", "2026-08-24"}, // Monday maps to itself
		{"2026-08-26", "2026-08-24"}, // Wednesday
		{"2026-08-28", "2026-08-24"}, // Friday
		{"2026-08-30", "2026-08-24"}, // Sunday belongs to the Monday-start week
	}
	for _, tc := range cases {
		got, err := stats.WeekStart(tc.date, loc)
		if err != nil {
			t.Fatalf("WeekStart(%s): %v", tc.date, err)
		}
		if got != tc.want {
			t.Errorf("WeekStart(%s): got %s, want %s", tc.date, got, tc.want)
		}
	}
}

func TestMonthStart(t *testing.T) {
	loc := time.UTC
	got, err := stats.MonthStart("2026-08-26", loc)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2026-08-01" {
		t.Errorf("got %s, want 2026-08-01", got)
	}

	if _, err := stats.MonthStart("not-a-date", loc); err == nil {
		t.Error("want error for malformed date")
	}
}

func testConfig(team ...db.TeamMember) *db.AppConfig {
	return &db.AppConfig{
		Timezone:             "UTC",
		ScorecardChannelName: "scorecard",
		WeeklySummaryDay:     "monday",
		WeeklySummaryTime:    "08:00",
		Schedule: db.ScheduleConfig{
			DailyCheckinTime:      "17:00",
			FirstFollowupTime:     "09:00",
			FollowupIntervalHours: 2,
			MaxFollowupsPerDay:    3,
		},
		Team: team,
	}
}

func TestScorecardUpdateOnTarget(t *testing.T) {
	// Member A, target 60: answered 80 Monday and 40 Tuesday. The Tuesday
	// update shows a week-to-date average of 60 and an on-target verdict
	// (today's 40 is below target, so today itself is off target).
	member := db.TeamMember{
		Name: "A", SlackID: "U_A", ManagerSlackID: "U_M",
		Role: "Engineer", Question: "How did it go?",
		Target: intPtr(60), TargetLabel: "≥60%",
	}
	cfg := testConfig(member)

	source := fakeResponses{rows: []db.Response{
		{SlackID: "U_A", Date: "2026-08-24", Value: 80},
		{SlackID: "U_A", Date: "2026-08-25", Value: 40},
	}}
	engine := &stats.Engine{Responses: source}

	resp := &db.Response{SlackID: "U_A", Date: "2026-08-25", Value: 40}
	summary, err := engine.ScorecardUpdate(cfg, &member, resp)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"> Today: *40%*",
		"> Weekly avg: *60%*",
		"> Monthly avg: *60%*",
		":x: Off target (≥60%)",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestScorecardUpdateNoTargetNoHistory(t *testing.T) {
	member := db.TeamMember{Name: "B", SlackID: "U_B", Role: "Designer"}
	cfg := testConfig(member)
	engine := &stats.Engine{Responses: fakeResponses{}}

	resp := &db.Response{SlackID: "U_B", Date: "2026-08-25", Value: 100}
	summary, err := engine.ScorecardUpdate(cfg, &member, resp)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(summary, "> Weekly avg: _N/A_") {
		t.Errorf("want N/A weekly average with no history:\n%s", summary)
	}
	if strings.Contains(summary, "target") || strings.Contains(summary, ":x:") {
		t.Errorf("no target verdict expected without a target:\n%s", summary)
	}
}

func TestWeeklyReportWindowAndMarkers(t *testing.T) {
	// Monday 2026-08-31: the most recently completed week is Mon
	// 2026-08-24 through Sun 2026-08-30. A answered Monday (80) and
	// Tuesday (40); the other weekdays show the no-data marker and the
	// average of 60 hits the ≥60 target.
	member := db.TeamMember{
		Name: "A", SlackID: "U_A", Role: "Engineer",
		Target: intPtr(60), TargetLabel: "≥60%",
	}
	cfg := testConfig(member)

	engine := &stats.Engine{Responses: fakeResponses{rows: []db.Response{
		{SlackID: "U_A", Date: "2026-08-24", Value: 80},
		{SlackID: "U_A", Date: "2026-08-25", Value: 40},
	}}}

	now := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	report, err := engine.WeeklyReport(cfg, now)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"2026-08-24 to 2026-08-30",
		"Mon: 80%",
		"Tue: 40%",
		"Wed: —",
		"Thu: —",
		"Fri: —",
		"> Weekly avg: *60%* :white_check_mark: (≥60%)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestWeeklyReportMidweekUsesPreviousWeek(t *testing.T) {
	// Midweek the completed window is still the previous Mon-Fri, not the
	// week in progress.
	member := db.TeamMember{Name: "A", SlackID: "U_A", Role: "Engineer"}
	cfg := testConfig(member)
	engine := &stats.Engine{Responses: fakeResponses{}}

	now := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC) // Wednesday
	report, err := engine.WeeklyReport(cfg, now)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(report, "2026-08-17 to 2026-08-23") {
		t.Errorf("want previous-week window in report:\n%s", report)
	}
	if !strings.Contains(report, "> Weekly avg: _N/A_") {
		t.Errorf("want N/A average with no responses:\n%s", report)
	}
}
