package analysis

import "strings"

// ExtractSignal finds the trust-signal label in raw model output by
// case-insensitive substring search over the configured closed set. When
// several labels appear, the one mentioned last wins, with longer labels
// breaking ties so "Red Flag" is never shadowed by a label it contains.
func ExtractSignal(text string, labels []string) (string, bool) {
	lowered := strings.ToLower(text)

	best := ""
	bestIndex := -1
	for _, label := range labels {
		idx := strings.LastIndex(lowered, strings.ToLower(label))
		if idx < 0 {
			continue
		}
		if idx > bestIndex || (idx == bestIndex && len(label) > len(best)) {
			best = label
			bestIndex = idx
		}
	}
	if bestIndex < 0 {
		return "", false
	}
	return best, true
}

// StripSignalLine removes a trailing "Trust Signal: <label>" line from the
// summary so the label is not duplicated when the reply is formatted.
func StripSignalLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return text
	}
	last := strings.TrimSpace(lines[len(lines)-1])
	if strings.HasPrefix(strings.ToLower(last), "trust signal") {
		return strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))
	}
	return strings.TrimSpace(text)
}
