package postconf

import "fmt"

// Intent is the desired state of a parameter.
type Intent string

const (
	IntentSet    Intent = "present"
	IntentAbsent Intent = "absent"
	IntentAppend Intent = "append"
	IntentRemove Intent = "remove"
)

// Intents lists the recognised intents in documentation order.
func Intents() []Intent {
	return []Intent{IntentSet, IntentAbsent, IntentAppend, IntentRemove}
}

// ParseIntent maps a state string to an Intent. Empty means present; names
// are case-sensitive.
func ParseIntent(raw string) (Intent, error) {
	switch Intent(raw) {
	case "", IntentSet:
		return IntentSet, nil
	case IntentAbsent:
		return IntentAbsent, nil
	case IntentAppend:
		return IntentAppend, nil
	case IntentRemove:
		return IntentRemove, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidIntent, raw)
	}
}

// Request is the desired state for one parameter.
type Request struct {
	Name   string
	Value  string
	Intent Intent
}

// State is what postconf currently reports for a parameter.
type State struct {
	Name     string `json:"name"`
	RawValue string `json:"value"`
}

// Result is the outcome of one reconciliation. Value holds the value after
// the change, or the value that would have been written in dry-run.
type Result struct {
	Changed  bool   `json:"changed"`
	Message  string `json:"msg"`
	Name     string `json:"name"`
	Intent   Intent `json:"state"`
	Previous string `json:"previous"`
	Value    string `json:"value"`
	DryRun   bool   `json:"check_mode"`
}

// ValidName reports whether name uses main.cf parameter syntax.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isUpper := c >= 'A' && c <= 'Z'
		isDigit := c >= '0' && c <= '9'
		if !(isLower || isUpper || isDigit || c == '_') {
			return false
		}
	}
	return true
}
