package attribution

import (
	"sort"

	"github.com/smerrill/worktrace/internal/core/models"
)

// Client is one billable client plus its ordered detection rules
type Client struct {
	Name  string
	Code  string
	Rules []Rule
}

// Match is a successful attribution. Confidence is always > 0.
type Match struct {
	ClientName   string
	ClientCode   string
	Confidence   float64
	RuleType     string // rule type (or remote lookup kind) that fired
	Pattern      string // textual rule that matched; empty for remote hits
	MatchedValue string // literal signal value that satisfied it
}

// Engine evaluates local detection rules against capture signals
type Engine struct {
	clients []Client
}

// NewEngine compiles every client's rules and returns a ready engine
func NewEngine(clients []Client) *Engine {
	compiled := make([]Client, len(clients))
	copy(compiled, clients)
	for i := range compiled {
		rules := make([]Rule, len(compiled[i].Rules))
		copy(rules, compiled[i].Rules)
		for j := range rules {
			rules[j].Compile()
		}
		compiled[i].Rules = rules
	}
	return &Engine{clients: compiled}
}

// signalFor returns the signal value a rule type inspects, or "" when the
// signal is absent, in which case the rule never participates.
func signalFor(t RuleType, sig models.CaptureSignal) string {
	switch t {
	case RuleIPRange:
		return sig.SourceIP
	case RuleHostname:
		return sig.Hostname
	case RuleURL:
		return sig.URL
	case RuleWindowTitle:
		return sig.WindowTitle
	}
	return ""
}

// bestForClient returns the client's highest-confidence match against the
// signal set. Among equal-confidence rules of one client, the later rule
// wins.
func bestForClient(c Client, sig models.CaptureSignal) *Match {
	var best *Match
	for i := range c.Rules {
		rule := &c.Rules[i]
		value := signalFor(rule.Type, sig)
		if value == "" || !rule.Matches(value) {
			continue
		}
		if best == nil || rule.Confidence() >= best.Confidence {
			best = &Match{
				ClientName:   c.Name,
				ClientCode:   c.Code,
				Confidence:   rule.Confidence(),
				RuleType:     string(rule.Type),
				Pattern:      rule.Pattern,
				MatchedValue: value,
			}
		}
	}
	return best
}

// Detect returns the single best match across all clients, or nil. Ties on
// confidence go to the first-declared client; rule declaration order is the
// documented tie-break, not accidental map iteration.
func (e *Engine) Detect(sig models.CaptureSignal) *Match {
	var best *Match
	for i := range e.clients {
		m := bestForClient(e.clients[i], sig)
		if m == nil {
			continue
		}
		if best == nil || m.Confidence > best.Confidence {
			best = m
		}
	}
	return best
}

// DetectAll returns every client's best match ordered by descending
// confidence, for diagnostics and disambiguation. Equal confidences keep
// client declaration order.
func (e *Engine) DetectAll(sig models.CaptureSignal) []Match {
	var matches []Match
	for i := range e.clients {
		if m := bestForClient(e.clients[i], sig); m != nil {
			matches = append(matches, *m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}
