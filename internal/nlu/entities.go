package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// KnownApps lists the application names recognized by Extract, in priority
// order. The first entry found in the text wins regardless of its position.
var KnownApps = []string{"safari", "chrome", "spotify", "music", "notes", "mail", "calendar"}

var digitRun = regexp.MustCompile(`\d+`)

// durationRule maps a pattern to the unit it reports.
type durationRule struct {
	regex *regexp.Regexp
	unit  string
}

// durationRules are tried in order; only the first match is reported.
var durationRules = []durationRule{
	{regex: regexp.MustCompile(`(\d+)\s*minutes?`), unit: "minutes"},
	{regex: regexp.MustCompile(`(\d+)\s*hours?`), unit: "hours"},
	{regex: regexp.MustCompile(`(\d+)\s*seconds?`), unit: "seconds"},
}

// Extract returns the entities found in text. It never fails.
//
// Digit runs too large for an int are skipped rather than reported.
func Extract(text string) EntitySet {
	var entities EntitySet
	lower := strings.ToLower(text)

	for _, run := range digitRun.FindAllString(text, -1) {
		n, err := strconv.Atoi(run)
		if err != nil {
			continue
		}
		entities.Numbers = append(entities.Numbers, n)
	}

	for _, app := range KnownApps {
		if strings.Contains(lower, app) {
			entities.App = capitalize(app)
			break
		}
	}

	for _, rule := range durationRules {
		m := rule.regex.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		entities.Duration = &Duration{Value: value, Unit: rule.unit}
		break
	}

	return entities
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
