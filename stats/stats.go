// Package stats computes rolling averages over the response ledger and
// renders the scorecard update and weekly report texts.
package stats

import (
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/inconshreveable/log15"

	"PulseBot/db"
)

var logger = log.New("module", "stats")

// ResponseSource is the slice of the response store the engine needs.
type ResponseSource interface {
	ResponsesForMember(slackID, fromDate, toDate string) ([]db.Response, error)
}

// DBResponses reads from the responses table.
type DBResponses struct{}

func (DBResponses) ResponsesForMember(slackID, fromDate, toDate string) ([]db.Response, error) {
	return db.GetResponsesForMember(slackID, fromDate, toDate)
}

// ComputeAverage returns the arithmetic mean of the answer values, rounded
// half away from zero (80.5 rounds to 81). ok is false for an empty slice.
func ComputeAverage(responses []db.Response) (avg int, ok bool) {
	if len(responses) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range responses {
		sum += r.Value
	}
	return int(math.Round(float64(sum) / float64(len(responses)))), true
}

// WeekStart returns the Monday of the ISO week containing date.
func WeekStart(date string, loc *time.Location) (string, error) {
	t, err := time.ParseInLocation(db.DateLayout, date, loc)
	if err != nil {
		return "", fmt.Errorf("stats: bad date %q: %w", date, err)
	}
	shift := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -shift).Format(db.DateLayout), nil
}

// MonthStart returns the first day of the month containing date.
func MonthStart(date string, loc *time.Location) (string, error) {
	t, err := time.ParseInLocation(db.DateLayout, date, loc)
	if err != nil {
		return "", fmt.Errorf("stats: bad date %q: %w", date, err)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc).Format(db.DateLayout), nil
}

type Engine struct {
	Responses ResponseSource
}

// ScorecardUpdate builds the per-answer summary posted to the aggregation
// channel: today's value, week- and month-to-date averages, and the target
// verdict when the member has one.
func (e *Engine) ScorecardUpdate(cfg *db.AppConfig, member *db.TeamMember, resp *db.Response) (string, error) {
	loc, err := cfg.Location()
	if err != nil {
		return "", fmt.Errorf("stats: %w", err)
	}

	weekStart, err := WeekStart(resp.Date, loc)
	if err != nil {
		return "", err
	}
	weekResponses, err := e.Responses.ResponsesForMember(member.SlackID, weekStart, resp.Date)
	if err != nil {
		return "", fmt.Errorf("stats: week range: %w", err)
	}
	weeklyAvg, weekOK := ComputeAverage(weekResponses)

	monthStart, err := MonthStart(resp.Date, loc)
	if err != nil {
		return "", err
	}
	monthResponses, err := e.Responses.ResponsesForMember(member.SlackID, monthStart, resp.Date)
	if err != nil {
		return "", fmt.Errorf("stats: month range: %w", err)
	}
	monthlyAvg, monthOK := ComputeAverage(monthResponses)

	lines := []string{
		fmt.Sprintf("*%s* (%s) — %s", member.Name, member.Role, resp.Date),
		fmt.Sprintf("> Today: *%d%%*", resp.Value),
	}
	if weekOK {
		lines = append(lines, fmt.Sprintf("> Weekly avg: *%d%%*", weeklyAvg))
	} else {
		lines = append(lines, "> Weekly avg: _N/A_")
	}
	if monthOK {
		lines = append(lines, fmt.Sprintf("> Monthly avg: *%d%%*", monthlyAvg))
	} else {
		lines = append(lines, "> Monthly avg: _N/A_")
	}
	if member.Target != nil {
		verdict := ":x: Off target"
		if resp.Value >= *member.Target {
			verdict = ":white_check_mark: On target"
		}
		lines = append(lines, fmt.Sprintf("> %s (%s)", verdict, member.TargetLabel))
	}
	return strings.Join(lines, "\n"), nil
}

// WeeklyReport covers the most recently completed Monday-Friday window
// relative to now: per-day values (or a dash for missing days) and the week
// average for every member, judged against their target when set.
func (e *Engine) WeeklyReport(cfg *db.AppConfig, now time.Time) (string, error) {
	loc, err := cfg.Location()
	if err != nil {
		return "", fmt.Errorf("stats: %w", err)
	}
	now = now.In(loc)

	thisMonday, err := WeekStart(now.Format(db.DateLayout), loc)
	if err != nil {
		return "", err
	}
	mondayT, err := time.ParseInLocation(db.DateLayout, thisMonday, loc)
	if err != nil {
		return "", fmt.Errorf("stats: %w", err)
	}
	lastSunday := mondayT.AddDate(0, 0, -1)
	lastMonday := lastSunday.AddDate(0, 0, -6)
	fromDate := lastMonday.Format(db.DateLayout)
	toDate := lastSunday.Format(db.DateLayout)

	dayNames := [5]string{"Mon", "Tue", "Wed", "Thu", "Fri"}
	weekdays := make([]string, 5)
	for i := range weekdays {
		weekdays[i] = lastMonday.AddDate(0, 0, i).Format(db.DateLayout)
	}

	blocks := []string{fmt.Sprintf("*:bar_chart: Weekly Scorecard — %s to %s*", fromDate, toDate)}

	for i := range cfg.Team {
		member := &cfg.Team[i]
		responses, err := e.Responses.ResponsesForMember(member.SlackID, fromDate, toDate)
		if err != nil {
			logger.Error("weekly report skipped a member", "user", member.SlackID, "err", err)
			continue
		}
		avg, ok := ComputeAverage(responses)

		byDate := make(map[string]int, len(responses))
		for _, r := range responses {
			byDate[r.Date] = r.Value
		}
		daily := make([]string, 5)
		for j, day := range weekdays {
			if v, found := byDate[day]; found {
				daily[j] = fmt.Sprintf("%s: %d%%", dayNames[j], v)
			} else {
				daily[j] = fmt.Sprintf("%s: —", dayNames[j])
			}
		}

		avgLine := "> Weekly avg: _N/A_"
		if ok {
			avgLine = fmt.Sprintf("> Weekly avg: *%d%%*", avg)
			if member.Target != nil {
				mark := ":x:"
				if avg >= *member.Target {
					mark = ":white_check_mark:"
				}
				avgLine += fmt.Sprintf(" %s (%s)", mark, member.TargetLabel)
			}
		}

		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("*%s* (%s)", member.Name, member.Role),
			"> " + strings.Join(daily, " | "),
			avgLine,
		}, "\n"))
	}

	return strings.Join(blocks, "\n\n"), nil
}
