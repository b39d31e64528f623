package outreach

import (
	"math/rand/v2"
	"time"
)

// Pipeline evaluates the outreach rule ladder. Stateless apart from the
// injected clock and random pick, so a single Pipeline is safe to share
// across users and goroutines.
type Pipeline struct {
	clock func() time.Time
	pick  func(n int) int // uniform index into a template candidate set
}

// NewPipeline creates a Pipeline using the wall clock and math/rand.
func NewPipeline() *Pipeline {
	return &Pipeline{
		clock: time.Now,
		pick:  rand.IntN,
	}
}

// NewPipelineWith creates a Pipeline with an explicit clock and random
// source, for deterministic evaluation.
func NewPipelineWith(clock func() time.Time, pick func(n int) int) *Pipeline {
	return &Pipeline{clock: clock, pick: pick}
}

// rule is one predicate→decision pair. apply returns (decision, true) when
// the rule fires.
type rule struct {
	name  string
	apply func(p *Pipeline, c *Context, now time.Time) (Decision, bool)
}

// ladder is the total order of outreach rules. First match wins. The order
// is load-bearing: the daily cap precedes the critical-alert rule, so a
// user at their cap is not contacted even for a critical alert, and the
// critical-alert rule precedes quiet hours, so critical outreach ignores
// the quiet window.
var ladder = []rule{
	{name: "nudges_disabled", apply: ruleDisabled},
	{name: "daily_limit", apply: ruleDailyLimit},
	{name: "critical_alert", apply: ruleCriticalAlert},
	{name: "quiet_hours", apply: ruleQuietHours},
	{name: "streak_at_risk", apply: ruleStreakAtRisk},
	{name: "health_warning", apply: ruleHealthWarning},
	{name: "inactivity", apply: ruleInactivity},
	{name: "proactive_motivation", apply: ruleMotivation},
	{name: "no_action", apply: ruleNoAction},
}

// Decide runs the ladder against one user's context and returns the first
// matching decision. The terminal no-action rule always matches.
func (p *Pipeline) Decide(c *Context) Decision {
	now := p.clock()
	for _, r := range ladder {
		if d, ok := r.apply(p, c, now); ok {
			return d
		}
	}
	// Unreachable: ruleNoAction always fires.
	return Decision{ShouldContact: false, Reason: ReasonNoAction}
}

// --------------------------------------------------------------------------
// Rules, in ladder order
// --------------------------------------------------------------------------

func ruleDisabled(_ *Pipeline, c *Context, _ time.Time) (Decision, bool) {
	if c.Prefs.AutoNudgeEnabled {
		return Decision{}, false
	}
	return Decision{ShouldContact: false, Reason: ReasonDisabled}, true
}

func ruleDailyLimit(_ *Pipeline, c *Context, _ time.Time) (Decision, bool) {
	if c.RecentOutreach < c.Prefs.MaxNudgesPerDay {
		return Decision{}, false
	}
	return Decision{ShouldContact: false, Reason: ReasonDailyLimit}, true
}

func ruleCriticalAlert(_ *Pipeline, c *Context, _ time.Time) (Decision, bool) {
	if !hasUnresolved(c.Alerts, SeverityCritical) {
		return Decision{}, false
	}
	return Decision{
		ShouldContact: true,
		Reason:        ReasonCriticalAlert,
		Priority:      PriorityCritical,
		Channel:       ChannelPush,
		Message:       criticalAlertMessage(c.UserName),
	}, true
}

func ruleQuietHours(_ *Pipeline, c *Context, now time.Time) (Decision, bool) {
	start, end := quietBounds(c.Prefs)
	if !InQuietHours(now.Hour(), start, end) {
		return Decision{}, false
	}
	return Decision{
		ShouldContact: false,
		Reason:        ReasonQuietHours,
		OptimalHour:   optimalHour(c.Model),
	}, true
}

func ruleStreakAtRisk(_ *Pipeline, c *Context, now time.Time) (Decision, bool) {
	if c.Streak.Count < streakMinCount || c.Streak.HoursSinceLog(now) <= streakAtRiskHours {
		return Decision{}, false
	}
	return Decision{
		ShouldContact: true,
		Reason:        ReasonStreakAtRisk,
		Priority:      PriorityHigh,
		Channel:       ChannelPush,
		Message:       streakMessage(c.UserName, c.Streak.Count),
	}, true
}

func ruleHealthWarning(_ *Pipeline, c *Context, _ time.Time) (Decision, bool) {
	if !hasUnresolved(c.Alerts, SeverityWarning) {
		return Decision{}, false
	}
	return Decision{
		ShouldContact: true,
		Reason:        ReasonHealthWarning,
		Priority:      PriorityNormal,
		Channel:       ChannelInApp,
		Message:       warningMessage(c.UserName),
		OptimalHour:   optimalHour(c.Model),
	}, true
}

func ruleInactivity(_ *Pipeline, c *Context, now time.Time) (Decision, bool) {
	if daysSinceActivity(c.LastActivityAt, now) < inactivityDays {
		return Decision{}, false
	}
	return Decision{
		ShouldContact: true,
		Reason:        ReasonInactivity,
		Priority:      PriorityNormal,
		Channel:       ChannelPush,
		Message:       inactivityMessage(c.UserName),
		OptimalHour:   optimalHour(c.Model),
	}, true
}

func ruleMotivation(p *Pipeline, c *Context, _ time.Time) (Decision, bool) {
	if c.Model.EngagementRate <= motivationMinRate || c.RecentOutreach != 0 {
		return Decision{}, false
	}
	candidates := motivationMessages(c.UserName)
	return Decision{
		ShouldContact: true,
		Reason:        ReasonMotivation,
		Priority:      PriorityLow,
		Channel:       ChannelInApp,
		Message:       candidates[p.pick(len(candidates))],
		OptimalHour:   optimalHour(c.Model),
	}, true
}

func ruleNoAction(_ *Pipeline, _ *Context, _ time.Time) (Decision, bool) {
	return Decision{ShouldContact: false, Reason: ReasonNoAction}, true
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func hasUnresolved(alerts []Alert, sev Severity) bool {
	for _, a := range alerts {
		if a.Severity == sev && !a.Resolved {
			return true
		}
	}
	return false
}

// optimalHour returns the user's best contact hour from the engagement
// model, or the default when the model has none.
func optimalHour(m EngagementModel) *int {
	h := defaultOptimalHour
	if len(m.PreferredHours) > 0 {
		h = m.PreferredHours[0]
	}
	return &h
}

func daysSinceActivity(last *time.Time, now time.Time) float64 {
	if last == nil {
		return neverActiveDays
	}
	return now.Sub(*last).Hours() / 24
}
