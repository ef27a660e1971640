package catalog

import (
	"strings"

	"github.com/vietddude/healer/internal/core/domain"
)

type rule struct {
	keywords []string
	action   domain.ActionType
}

// rules are evaluated in order; the first rule with a matching keyword wins.
// Scale-up precedes scale-down.
var rules = []rule{
	{[]string{"restart", "reboot"}, domain.ActionRestartService},
	{[]string{"route", "switch"}, domain.ActionSwitchRoute},
	{[]string{"cache", "clear"}, domain.ActionClearCache},
	{[]string{"scale up", "scale-up"}, domain.ActionScaleUp},
	{[]string{"scale down", "scale-down"}, domain.ActionScaleDown},
	{[]string{"failover"}, domain.ActionFailover},
	{[]string{"quarantine"}, domain.ActionQuarantineNode},
}

// Parse maps a free-text action description to an ActionType.
// Matching is a case-insensitive substring test. Unmatched text yields ActionNone.
func Parse(text string) domain.ActionType {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.action
			}
		}
	}
	return domain.ActionNone
}
