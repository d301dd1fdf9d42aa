package api

const (
	slackPostMessageURL   = "https://slack.com/api/chat.postMessage"
	slackUpdateMessageURL = "https://slack.com/api/chat.update"
	slackConvListURL      = "https://slack.com/api/conversations.list"
	slackConvCreateURL    = "https://slack.com/api/conversations.create"
	slackConvInviteURL    = "https://slack.com/api/conversations.invite"
)

const (
	actionAnswerPrefix = "checkin_response_"
	actionCustomAnswer = "checkin_custom"
)

// quickAnswers are the one-click percentage buttons on the check-in prompt.
var quickAnswers = []int{20, 40, 60, 80, 100}
