package update

import (
	"fmt"
	"strings"

	"github.com/EwwwzhI/ActionPlus/internal/reminders"
)

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func formatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// syncLine summarises one outcome for the reminder panel.
func syncLine(out reminders.SyncOutcome) string {
	line := fmt.Sprintf("%s: %s", out.Category, out.Kind)
	switch out.Kind {
	case reminders.OutcomeApplied:
		line += fmt.Sprintf(" (%d scheduled", out.Scheduled)
		if out.Failed > 0 {
			line += fmt.Sprintf(", %d failed", out.Failed)
		}
		line += ")"
	case reminders.OutcomeSkipped:
		line += " (" + out.Reason + ")"
	}
	return line
}

func nextView(current View) View {
	for i, v := range Views {
		if v == current {
			return Views[(i+1)%len(Views)]
		}
	}
	return Views[0]
}

func viewNames() []string {
	out := make([]string, len(Views))
	for i, v := range Views {
		out[i] = string(v)
	}
	return out
}
