package session

// Action is a one-shot contextual button offered after an AI turn. Prompt is
// the message sent on click; an empty Prompt only focuses the input box.
type Action struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt,omitempty"`
}

// comprehensionActions is the three-option understanding check shown when the
// model asked for it via [SHOW_ACTIONS].
func comprehensionActions() []Action {
	return []Action{
		{Label: "Yep, I got it!", Prompt: "I understand. What's the challenge?"},
		{Label: "Explain it differently", Prompt: "Can you please explain that in a different way?"},
		{Label: "I have a question..."},
	}
}

// engagementActions is the four-option default menu shown after every other
// AI reply.
func engagementActions() []Action {
	return []Action{
		{Label: "I'll try this now", Prompt: "I'll try to solve this challenge now."},
		{Label: "This is confusing", Prompt: "I'm finding this confusing. Can you explain it more simply?"},
		{Label: "Show me an example", Prompt: "Could you show me an example of how to do this?"},
		{Label: "Need to take a break", Prompt: "I need to take a break and will continue later."},
	}
}

// actionsFor picks the menu for a parsed reply: the comprehension menu when
// the model signalled it, otherwise the default engagement menu.
func actionsFor(parsed ParsedReply) []Action {
	if parsed.ShowActions {
		return comprehensionActions()
	}
	return engagementActions()
}
