package alert

import (
	"strings"

	"github.com/nudgehq/nudge/internal/hookevent"
)

// Notification types the agent sets on its own notifications.
var notificationTypes = map[string]Type{
	"permission_prompt":  TypePermission,
	"permission_request": TypePermission,
	"idle_prompt":        TypeInput,
	"elicitation_dialog": TypeInput,
	"input_request":      TypeInput,
	"error":              TypeError,
}

// Message fragments, checked in order. Permission wins over input because
// permission prompts usually also say the agent is waiting.
var messageRules = []struct {
	typ       Type
	fragments []string
}{
	{TypePermission, []string{"permission", "approve", "allow "}},
	{TypeInput, []string{"waiting for your input", "waiting for input", "needs your input", "is waiting", "input"}},
	{TypeError, []string{"error", "failed", "failure", "crashed"}},
}

// Classify decides whether a notification needs the user. Routine progress
// notifications classify as TypeNone and never start reminders.
func Classify(p *hookevent.Payload) Type {
	if p == nil {
		return TypeNone
	}
	if t, ok := notificationTypes[strings.ToLower(strings.TrimSpace(p.NotificationType))]; ok {
		return t
	}
	return ClassifyMessage(p.Title + " " + p.Message)
}

// ClassifyMessage classifies free text.
func ClassifyMessage(message string) Type {
	m := strings.ToLower(message)
	for _, rule := range messageRules {
		for _, f := range rule.fragments {
			if strings.Contains(m, f) {
				return rule.typ
			}
		}
	}
	return TypeNone
}
