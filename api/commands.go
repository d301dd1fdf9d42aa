package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"PulseBot/access"
	"PulseBot/db"
)

var (
	mentionRe  = regexp.MustCompile(`<@(U[A-Z0-9]+)(?:\|[^>]*)?>`)
	nameRe     = regexp.MustCompile(`name:"([^"]+)"`)
	roleRe     = regexp.MustCompile(`role:"([^"]+)"`)
	questionRe = regexp.MustCompile(`question:"([^"]+)"`)
	managerRe  = regexp.MustCompile(`manager:<@(U[A-Z0-9]+)(?:\|[^>]*)?>`)
	targetRe   = regexp.MustCompile(`target:(\d{1,3})`)
	dateRe     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
)

// HandleSlashCommand dispatches the bot's slash commands. Every reply is
// ephemeral; denials surface the policy's reason.
func (h *Handler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	command := r.FormValue("command")
	userID := r.FormValue("user_id")
	text := strings.TrimSpace(r.FormValue("text"))
	logger.Info("slash command", "command", command, "user", userID)

	var reply string
	switch command {
	case "/pulse-config":
		reply = h.configSummary(userID)
	case "/pulse-status":
		reply = h.statusDashboard(userID)
	case "/pulse-team":
		reply = h.teamCommand(userID, text)
	case "/pulse-schedule":
		reply = h.scheduleCommand(userID, text)
	case "/pulse-admin":
		reply = h.adminCommand(userID, text)
	case "/pulse-ooo":
		reply = h.oooCommand(userID, text)
	default:
		reply = fmt.Sprintf("Unknown command %s.", command)
	}
	writeEphemeral(w, reply)
}

func writeEphemeral(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	})
}

// replyFor renders an error for the user: a policy denial shows its reason,
// anything else is logged and generic.
func replyFor(err error) string {
	var denied *access.DeniedError
	if errors.As(err, &denied) {
		return ":no_entry: " + denied.Reason
	}
	logger.Error("command failed", "err", err)
	return ":warning: Something went wrong, please try again."
}

func todayIn(cfg *db.AppConfig) string {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc).Format(db.DateLayout)
}

// visibleTeam returns the members the actor may see: admins see everyone,
// managers see their direct reports.
func (h *Handler) visibleTeam(actor string, cfg *db.AppConfig) []db.TeamMember {
	if h.Policy.Roles.IsAdmin(actor) {
		return cfg.Team
	}
	var reports []db.TeamMember
	for _, m := range cfg.Team {
		if m.ManagerSlackID == actor {
			reports = append(reports, m)
		}
	}
	return reports
}

func (h *Handler) configSummary(actor string) string {
	if err := h.Policy.CanViewTeam(actor); err != nil {
		return replyFor(err)
	}
	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}

	lines := []string{
		"*:gear: Configuration*",
		fmt.Sprintf("> Timezone: %s", cfg.Timezone),
		fmt.Sprintf("> Daily check-in: %s (weekdays)", cfg.Schedule.DailyCheckinTime),
		fmt.Sprintf("> Follow-ups: up to %d, first at %s, every %dh",
			cfg.Schedule.MaxFollowupsPerDay, cfg.Schedule.FirstFollowupTime, cfg.Schedule.FollowupIntervalHours),
		fmt.Sprintf("> Weekly summary: %s %s", cfg.WeeklySummaryDay, cfg.WeeklySummaryTime),
		fmt.Sprintf("> Scorecard channel: #%s", cfg.ScorecardChannelName),
		fmt.Sprintf("> Team size: %d", len(cfg.Team)),
	}
	if db.IsPaused() {
		lines = append(lines, "> :pause_button: *The bot is paused.*")
	}
	return strings.Join(lines, "\n")
}

// statusDashboard shows today's check-in state for every visible member.
func (h *Handler) statusDashboard(actor string) string {
	if err := h.Policy.CanViewTeam(actor); err != nil {
		return replyFor(err)
	}
	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}
	today := todayIn(cfg)

	lines := []string{fmt.Sprintf("*:clipboard: Check-in status for %s*", today)}
	if db.IsPaused() {
		lines = append(lines, ":pause_button: *The bot is paused; no prompts are going out.*")
	}

	team := h.visibleTeam(actor, cfg)
	if len(team) == 0 {
		lines = append(lines, "_You have no direct reports on the team._")
		return strings.Join(lines, "\n")
	}
	for _, m := range team {
		if m.Placeholder() {
			lines = append(lines, fmt.Sprintf(":grey_question: %s (placeholder id, never prompted)", m.Name))
			continue
		}
		resp, err := db.GetResponseForDay(m.SlackID, today)
		if err != nil {
			logger.Error("status lookup failed", "user", m.SlackID, "err", err)
			lines = append(lines, fmt.Sprintf(":grey_question: %s (lookup failed)", m.Name))
			continue
		}
		switch {
		case resp != nil:
			line := fmt.Sprintf(":white_check_mark: %s: %d%%", m.Name, resp.Value)
			if resp.Blocker != "" {
				line += " :construction: has a blocker"
			}
			lines = append(lines, line)
		case db.IsOoo(m.SlackID, today):
			lines = append(lines, fmt.Sprintf(":palm_tree: %s: out of office", m.Name))
		default:
			lines = append(lines, fmt.Sprintf(":hourglass_flowing_sand: %s: pending", m.Name))
		}
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) teamCommand(actor, text string) string {
	sub := "list"
	if fields := strings.Fields(text); len(fields) > 0 {
		sub = fields[0]
	}
	switch sub {
	case "list":
		return h.teamList(actor)
	case "add":
		return h.teamAdd(actor, text)
	case "edit":
		return h.teamEdit(actor, text)
	case "remove":
		return h.teamRemove(actor, text)
	default:
		return "Usage: `/pulse-team list | add | edit | remove`"
	}
}

func (h *Handler) teamList(actor string) string {
	if err := h.Policy.CanViewTeam(actor); err != nil {
		return replyFor(err)
	}
	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}
	team := h.visibleTeam(actor, cfg)
	if len(team) == 0 {
		return "_You have no direct reports on the team._"
	}

	lines := []string{"*:busts_in_silhouette: Team*"}
	for _, m := range team {
		line := fmt.Sprintf("> *%s* (%s) <@%s>, manager <@%s>", m.Name, m.Role, m.SlackID, m.ManagerSlackID)
		if m.Target != nil {
			line += fmt.Sprintf(", target %s", m.TargetLabel)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// targetMention extracts the member mention, ignoring a manager:<@...> field.
func targetMention(text string) string {
	rest := managerRe.ReplaceAllString(text, "")
	m := mentionRe.FindStringSubmatch(rest)
	if m == nil {
		return ""
	}
	return m[1]
}

func (h *Handler) teamAdd(actor, text string) string {
	if err := h.Policy.CanAddMember(actor); err != nil {
		return replyFor(err)
	}
	target := targetMention(text)
	if target == "" {
		return "Usage: `/pulse-team add @user name:\"Jane\" role:\"SDR\" question:\"...\" target:75 manager:@boss`"
	}
	name := submatch(nameRe, text)
	if name == "" {
		return "A `name:\"...\"` field is required."
	}

	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}
	if cfg.MemberByID(target) != nil {
		return fmt.Sprintf("<@%s> is already on the team.", target)
	}

	requestedManager := submatch(managerRe, text)
	if requestedManager == "" {
		requestedManager = actor
	}
	member := db.TeamMember{
		Name:           name,
		SlackID:        target,
		ManagerSlackID: h.Policy.EffectiveManager(actor, requestedManager),
		Role:           submatch(roleRe, text),
		Question:       submatch(questionRe, text),
		InputType:      "percentage",
	}
	if member.Role == "" {
		member.Role = "Team member"
	}
	if raw := submatch(targetRe, text); raw != "" {
		t, err := strconv.Atoi(raw)
		if err != nil || t < 0 || t > 100 {
			return "The target must be a number from 0 to 100."
		}
		member.Target = &t
		member.TargetLabel = db.TargetLabelFor(t)
	}

	cfg.Team = append(cfg.Team, member)
	if err := db.SaveAppConfig(cfg); err != nil {
		return ":warning: " + err.Error()
	}
	return fmt.Sprintf(":white_check_mark: Added *%s* <@%s> to the team.", member.Name, member.SlackID)
}

func (h *Handler) teamEdit(actor, text string) string {
	target := targetMention(text)
	if target == "" {
		return "Usage: `/pulse-team edit @user [name:\"...\"] [role:\"...\"] [question:\"...\"] [target:75|target:none] [manager:@boss]`"
	}
	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}
	member := cfg.MemberByID(target)
	if member == nil {
		return fmt.Sprintf("<@%s> is not on the team.", target)
	}
	if err := h.Policy.CanManageMember(actor, member); err != nil {
		return replyFor(err)
	}

	if v := submatch(nameRe, text); v != "" {
		member.Name = v
	}
	if v := submatch(roleRe, text); v != "" {
		member.Role = v
	}
	if v := submatch(questionRe, text); v != "" {
		member.Question = v
	}
	if v := submatch(managerRe, text); v != "" {
		member.ManagerSlackID = h.Policy.EffectiveManager(actor, v)
	}
	if strings.Contains(text, "target:none") {
		member.Target = nil
		member.TargetLabel = ""
	} else if raw := submatch(targetRe, text); raw != "" {
		t, err := strconv.Atoi(raw)
		if err != nil || t < 0 || t > 100 {
			return "The target must be a number from 0 to 100."
		}
		member.Target = &t
		member.TargetLabel = db.TargetLabelFor(t)
	}

	if err := db.SaveAppConfig(cfg); err != nil {
		return ":warning: " + err.Error()
	}
	return fmt.Sprintf(":white_check_mark: Updated *%s* <@%s>.", member.Name, member.SlackID)
}

func (h *Handler) teamRemove(actor, text string) string {
	target := targetMention(text)
	if target == "" {
		return "Usage: `/pulse-team remove @user`"
	}
	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}
	member := cfg.MemberByID(target)
	if member == nil {
		return fmt.Sprintf("<@%s> is not on the team.", target)
	}
	if err := h.Policy.CanManageMember(actor, member); err != nil {
		return replyFor(err)
	}

	name := member.Name
	kept := cfg.Team[:0]
	for _, m := range cfg.Team {
		if m.SlackID != target {
			kept = append(kept, m)
		}
	}
	cfg.Team = kept
	if err := db.SaveAppConfig(cfg); err != nil {
		return ":warning: " + err.Error()
	}
	return fmt.Sprintf(":white_check_mark: Removed *%s* from the team.", name)
}

func (h *Handler) scheduleCommand(actor, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || fields[0] == "show" {
		return h.configSummary(actor)
	}
	if fields[0] != "set" {
		return "Usage: `/pulse-schedule show` or `/pulse-schedule set key=value [key=value ...]`"
	}
	if err := h.Policy.CanEditSchedule(actor); err != nil {
		return replyFor(err)
	}

	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}
	changed := 0
	for _, pair := range fields[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Sprintf("`%s` is not a key=value pair.", pair)
		}
		switch key {
		case "daily_checkin_time":
			cfg.Schedule.DailyCheckinTime = value
		case "first_followup_time":
			cfg.Schedule.FirstFollowupTime = value
		case "followup_interval_hours":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Sprintf("`%s` needs a number.", key)
			}
			cfg.Schedule.FollowupIntervalHours = n
		case "max_followups_per_day":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Sprintf("`%s` needs a number.", key)
			}
			cfg.Schedule.MaxFollowupsPerDay = n
		case "timezone":
			cfg.Timezone = value
		case "weekly_summary_day":
			cfg.WeeklySummaryDay = value
		case "weekly_summary_time":
			cfg.WeeklySummaryTime = value
		case "scorecard_channel":
			cfg.ScorecardChannelName = strings.TrimPrefix(value, "#")
		default:
			return fmt.Sprintf("Unknown schedule key `%s`.", key)
		}
		changed++
	}
	if changed == 0 {
		return "Nothing to change."
	}

	if err := db.SaveAppConfig(cfg); err != nil {
		return ":warning: " + err.Error()
	}
	if err := h.Scheduler.RescheduleAll(cfg); err != nil {
		logger.Error("reschedule after config change failed", "err", err)
		return ":warning: Saved, but rescheduling failed: " + err.Error()
	}
	return fmt.Sprintf(":white_check_mark: Updated %d setting(s) and rescheduled all jobs.", changed)
}

func (h *Handler) adminCommand(actor, text string) string {
	fields := strings.Fields(text)
	sub := "panel"
	if len(fields) > 0 {
		sub = fields[0]
	}
	switch sub {
	case "panel":
		return h.adminPanel(actor)
	case "pause":
		if err := h.Policy.CanAdministerBot(actor); err != nil {
			return replyFor(err)
		}
		if err := db.SetPaused(true); err != nil {
			return replyFor(err)
		}
		logger.Info("bot paused", "by", actor)
		return ":pause_button: Paused. No prompts, follow-ups, or summaries will go out."
	case "resume":
		if err := h.Policy.CanAdministerBot(actor); err != nil {
			return replyFor(err)
		}
		if err := db.SetPaused(false); err != nil {
			return replyFor(err)
		}
		logger.Info("bot resumed", "by", actor)
		return ":arrow_forward: Resumed. Broadcasts are back on schedule."
	case "grant":
		return h.roleChange(actor, fields, true)
	case "revoke":
		return h.roleChange(actor, fields, false)
	default:
		return "Usage: `/pulse-admin panel | pause | resume | grant admin|manager @user | revoke admin|manager @user`"
	}
}

func (h *Handler) adminPanel(actor string) string {
	if err := h.Policy.CanAdministerBot(actor); err != nil {
		return replyFor(err)
	}
	lines := []string{"*:shield: Admin panel*"}
	if db.IsPaused() {
		lines = append(lines, ":pause_button: *The bot is paused.*")
	}
	for _, role := range []string{db.RoleAdmin, db.RoleManager} {
		grants, err := db.ListByRole(role)
		if err != nil {
			return replyFor(err)
		}
		mentions := make([]string, 0, len(grants))
		for _, g := range grants {
			mentions = append(mentions, fmt.Sprintf("<@%s>", g.SlackID))
		}
		if len(mentions) == 0 {
			mentions = append(mentions, "_none_")
		}
		lines = append(lines, fmt.Sprintf("> %ss: %s", role, strings.Join(mentions, ", ")))
	}
	lines = append(lines, fmt.Sprintf("> Armed jobs: %s", strings.Join(h.Scheduler.Jobs(), ", ")))
	return strings.Join(lines, "\n")
}

func (h *Handler) roleChange(actor string, fields []string, grant bool) string {
	if len(fields) < 3 {
		return "Usage: `/pulse-admin grant|revoke admin|manager @user`"
	}
	role := strings.ToLower(fields[1])
	target := targetMention(strings.Join(fields[2:], " "))
	if target == "" {
		return "Mention the user, like `/pulse-admin grant manager @jane`."
	}

	if grant {
		if err := h.Policy.CanGrantRole(actor, target, role); err != nil {
			return replyFor(err)
		}
		granted, err := db.AddRole(target, role, actor)
		if err != nil {
			return replyFor(err)
		}
		if !granted {
			return fmt.Sprintf("<@%s> already holds the %s role.", target, role)
		}
		logger.Info("role granted", "role", role, "user", target, "by", actor)
		return fmt.Sprintf(":white_check_mark: <@%s> is now a %s.", target, role)
	}

	if err := h.Policy.CanRevokeRole(actor, target, role); err != nil {
		return replyFor(err)
	}
	revoked, err := db.RemoveRole(target, role)
	if err != nil {
		return replyFor(err)
	}
	if !revoked {
		return fmt.Sprintf("<@%s> does not hold the %s role.", target, role)
	}
	logger.Info("role revoked", "role", role, "user", target, "by", actor)
	return fmt.Sprintf(":white_check_mark: <@%s> is no longer a %s.", target, role)
}

func (h *Handler) oooCommand(actor, text string) string {
	fields := strings.Fields(text)
	sub := "list"
	if len(fields) > 0 {
		sub = fields[0]
	}

	cfg, err := db.LoadAppConfig()
	if err != nil {
		return replyFor(err)
	}
	today := todayIn(cfg)

	target := actor
	if m := targetMention(text); m != "" {
		target = m
	}

	switch sub {
	case "list":
		if target != actor {
			if err := h.Policy.CanSetAbsence(actor, target, cfg); err != nil {
				return replyFor(err)
			}
		}
		entries, err := db.GetOooForMember(target, today)
		if err != nil {
			return replyFor(err)
		}
		if len(entries) == 0 {
			return fmt.Sprintf("<@%s> has no current or upcoming out-of-office.", target)
		}
		lines := []string{fmt.Sprintf("*:palm_tree: Out-of-office for <@%s>*", target)}
		for _, e := range entries {
			line := fmt.Sprintf("> %s to %s", e.StartDate, e.EndDate)
			if e.Reason != "" {
				line += fmt.Sprintf(" (%s)", e.Reason)
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n")

	case "set":
		if err := h.Policy.CanSetAbsence(actor, target, cfg); err != nil {
			return replyFor(err)
		}
		dates := dateRe.FindAllString(text, -1)
		if len(dates) == 0 {
			return "Usage: `/pulse-ooo set [@user] 2026-09-01 2026-09-05 [reason]`"
		}
		start := dates[0]
		end := start
		if len(dates) > 1 {
			end = dates[1]
		}
		for _, d := range dates {
			if _, err := time.Parse(db.DateLayout, d); err != nil {
				return fmt.Sprintf("`%s` is not a valid date.", d)
			}
		}
		if end < start {
			return "The end date must not be before the start date."
		}

		reason := text
		reason = strings.TrimPrefix(reason, sub)
		reason = mentionRe.ReplaceAllString(reason, "")
		reason = dateRe.ReplaceAllString(reason, "")
		reason = strings.TrimSpace(reason)

		if err := db.AddOoo(target, start, end, reason, actor); err != nil {
			return replyFor(err)
		}
		logger.Info("out-of-office set", "user", target, "from", start, "to", end, "by", actor)
		return fmt.Sprintf(":palm_tree: <@%s> is out of office from %s to %s.", target, start, end)

	case "clear":
		if err := h.Policy.CanSetAbsence(actor, target, cfg); err != nil {
			return replyFor(err)
		}
		cleared, err := db.ClearOoo(target, today)
		if err != nil {
			return replyFor(err)
		}
		if cleared == 0 {
			return fmt.Sprintf("<@%s> had no out-of-office to clear.", target)
		}
		return fmt.Sprintf(":white_check_mark: Cleared %d out-of-office entries for <@%s>.", cleared, target)

	default:
		return "Usage: `/pulse-ooo list | set [@user] start end [reason] | clear [@user]`"
	}
}

func submatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
