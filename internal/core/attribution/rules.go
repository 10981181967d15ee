// Package attribution maps ambiguous window and network signals to client
// identities with confidence scores. A fast local rule set always applies;
// an optional remote lookup service is consulted first when configured.
package attribution

import (
	"net"
	"regexp"
	"strings"
)

// RuleType identifies which signal a detection rule inspects
type RuleType string

const (
	RuleIPRange     RuleType = "ip_range"
	RuleHostname    RuleType = "hostname"
	RuleWindowTitle RuleType = "window_title"
	RuleURL         RuleType = "url"
)

// Confidence weights per rule type. Network identity is trusted more than
// window text.
var ruleConfidence = map[RuleType]float64{
	RuleIPRange:     0.95,
	RuleHostname:    0.90,
	RuleURL:         0.85,
	RuleWindowTitle: 0.75,
}

// Rule is one detection rule owned by a client. Compile must run before
// first use; an uncompiled rule never matches.
type Rule struct {
	Type    RuleType
	Pattern string

	compiled bool
	re       *regexp.Regexp // glob types
	network  *net.IPNet     // ip_range type
}

// Confidence returns the fixed weight for this rule's type
func (r *Rule) Confidence() float64 {
	return ruleConfidence[r.Type]
}

// Compile prepares the rule for matching. ip_range patterns parse as CIDR;
// everything else compiles a case-insensitive glob (* = any run, ? = any
// char) anchored at both ends. Malformed patterns compile to never-match so
// one bad rule cannot take down attribution for other clients. Idempotent.
func (r *Rule) Compile() {
	if r.compiled {
		return
	}
	r.compiled = true

	if r.Type == RuleIPRange {
		_, network, err := net.ParseCIDR(r.Pattern)
		if err != nil {
			return // never matches
		}
		r.network = network
		return
	}

	re, err := regexp.Compile(globToRegexp(r.Pattern))
	if err != nil {
		return // never matches
	}
	r.re = re
}

// Matches tests a candidate value against the compiled rule
func (r *Rule) Matches(value string) bool {
	if !r.compiled || value == "" {
		return false
	}

	if r.Type == RuleIPRange {
		if r.network == nil {
			return false
		}
		ip := net.ParseIP(value)
		if ip == nil {
			return false
		}
		// Only IPv4 participates in range rules
		ip4 := ip.To4()
		if ip4 == nil {
			return false
		}
		return r.network.Contains(ip4)
	}

	if r.re == nil {
		return false
	}
	return r.re.MatchString(value)
}

// globToRegexp translates a glob pattern into an anchored case-insensitive
// regular expression
func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, c := range pattern {
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return b.String()
}
