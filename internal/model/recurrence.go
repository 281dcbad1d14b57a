package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidAutoRule = errors.New("model: invalid auto rule")

// AutoRule decides on which days an auto template spawns a task.
type AutoRule string

const (
	AutoRuleDaily   AutoRule = "daily"
	AutoRuleWeekday AutoRule = "weekday"
	AutoRuleWeekend AutoRule = "weekend"
)

// AutoRules is the UI cycle order.
var AutoRules = []AutoRule{AutoRuleDaily, AutoRuleWeekday, AutoRuleWeekend}

func (r AutoRule) IsValid() bool {
	switch r {
	case AutoRuleDaily, AutoRuleWeekday, AutoRuleWeekend:
		return true
	default:
		return false
	}
}

func (r AutoRule) Label() string {
	switch r {
	case AutoRuleWeekday:
		return "工作日"
	case AutoRuleWeekend:
		return "周末"
	default:
		return "每日"
	}
}

// ParseAutoRule accepts a stored or typed rule. Unknown values, the legacy
// monWedFri rule included, are reported with ErrInvalidAutoRule and daily.
func ParseAutoRule(v string) (AutoRule, error) {
	r := AutoRule(v)
	if r.IsValid() {
		return r, nil
	}
	return AutoRuleDaily, fmt.Errorf("%w: %q", ErrInvalidAutoRule, v)
}

// IsRuleMatch reports whether rule fires on date's weekday. Unknown rules
// behave as daily.
func IsRuleMatch(rule AutoRule, date time.Time) bool {
	day := date.Weekday()
	switch rule {
	case AutoRuleWeekday:
		return day >= time.Monday && day <= time.Friday
	case AutoRuleWeekend:
		return day == time.Saturday || day == time.Sunday
	default:
		return true
	}
}

// NextAutoRule cycles daily -> weekday -> weekend -> daily. An unknown rule
// counts as the first entry.
func NextAutoRule(rule AutoRule) AutoRule {
	idx := 0
	for i, r := range AutoRules {
		if r == rule {
			idx = i
			break
		}
	}
	return AutoRules[(idx+1)%len(AutoRules)]
}
