package notify

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Templates are the spoken messages. Placeholders in braces are replaced by
// Render: {project} {type} {message} {objective} {command} {minutes}
// {count} {round}.
type Templates struct {
	Claimed     string `toml:"claimed"`
	CheckPassed string `toml:"check_passed"`
	Paused      string `toml:"paused"`
	Alert       string `toml:"alert"`
	Reminder    string `toml:"reminder"`
	Escalation  string `toml:"escalation"`
}

// DefaultTemplates returns the built-in messages.
func DefaultTemplates() Templates {
	return Templates{
		Claimed:     "{project}: continuing, {objective}",
		CheckPassed: "{project}: checks passed, letting it stop",
		Paused:      "{project}: paused",
		Alert:       "{project} needs your {type}",
		Reminder:    "Reminder: {project} is still waiting for your {type}",
		Escalation:  "Urgent: {project} has been waiting {minutes} minutes for your {type}",
	}
}

// LoadTemplates reads overrides from a TOML file. A missing file yields the
// defaults; keys absent from the file keep their defaults.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}
	var override Templates
	if _, err := toml.DecodeFile(path, &override); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("parse templates %s: %w", path, err)
	}
	merge(&t.Claimed, override.Claimed)
	merge(&t.CheckPassed, override.CheckPassed)
	merge(&t.Paused, override.Paused)
	merge(&t.Alert, override.Alert)
	merge(&t.Reminder, override.Reminder)
	merge(&t.Escalation, override.Escalation)
	return t, nil
}

func merge(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// Vars fill template placeholders.
type Vars map[string]string

// Render substitutes {name} placeholders. Unknown placeholders are left as is.
func Render(tmpl string, vars Vars) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
