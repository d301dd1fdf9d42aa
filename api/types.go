package api

// Inbound Slack payloads, trimmed to the fields the handlers read.

type slackEvent struct {
	Type      string         `json:"type"`
	Challenge string         `json:"challenge"`
	Event     slackEventData `json:"event"`
}

type slackEventData struct {
	Type        string `json:"type"`
	User        string `json:"user"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	BotID       string `json:"bot_id"`
}

type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Message struct {
		Ts string `json:"ts"`
	} `json:"message"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// answerPayload rides inside a button's value so a click carries everything
// needed to record the answer without server-side prompt state.
type answerPayload struct {
	SlackID string `json:"slack_id"`
	Date    string `json:"date"`
	Value   int    `json:"value"`
}

// Outbound Block Kit structures for the prompt message.

type textObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type buttonElement struct {
	Type     string      `json:"type"`
	Text     *textObject `json:"text"`
	ActionID string      `json:"action_id"`
	Value    string      `json:"value"`
}

type block struct {
	Type     string          `json:"type"`
	Text     *textObject     `json:"text,omitempty"`
	Elements []buttonElement `json:"elements,omitempty"`
}
