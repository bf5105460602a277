package model

import (
	"fmt"
	"strings"
)

// EgressMode is the base network egress mode of a sprite.
type EgressMode string

const (
	// EgressModeAllowAll allows all egress traffic not denied by a rule.
	EgressModeAllowAll EgressMode = "allow-all"
	// EgressModeBlockAll blocks all egress traffic not allowed by a rule.
	EgressModeBlockAll EgressMode = "block-all"
)

// EgressAction represents the action for an egress rule.
type EgressAction string

const (
	// EgressActionAllow permits the traffic.
	EgressActionAllow EgressAction = "allow"
	// EgressActionDeny blocks the traffic.
	EgressActionDeny EgressAction = "deny"
)

// Policy is the network policy attached to a sprite.
type Policy struct {
	Egress EgressPolicy
}

// EgressPolicy defines network egress filtering for a sprite.
type EgressPolicy struct {
	Policy EgressMode
	// Rules are evaluated in order, first match wins.
	Rules []EgressRule
}

// EgressRule defines a single domain-based egress rule.
type EgressRule struct {
	// Domain is a domain pattern: "github.com", "*.github.com", or "*".
	Domain string
	Action EgressAction
}

// PolicyCheck is the result of checking a domain against a sprite policy.
type PolicyCheck struct {
	Domain  string
	Allowed bool
	Policy  Policy
}

// Validate validates the egress policy.
func (p EgressPolicy) Validate() error {
	if p.Policy == "" && len(p.Rules) == 0 {
		return fmt.Errorf("egress policy or rules are required: %w", ErrNotValid)
	}

	for i, r := range p.Rules {
		if r.Domain == "" {
			return fmt.Errorf("rule %d: domain is required: %w", i, ErrNotValid)
		}
		if r.Domain != "*" && strings.Contains(strings.TrimPrefix(r.Domain, "*."), "*") {
			return fmt.Errorf("rule %d: wildcard is only allowed as a prefix in %q: %w", i, r.Domain, ErrNotValid)
		}
		if r.Action != EgressActionAllow && r.Action != EgressActionDeny {
			return fmt.Errorf("rule %d: unknown action %q: %w", i, r.Action, ErrNotValid)
		}
	}

	return nil
}

// AllowDomain checks if a domain would be allowed by the policy.
func (p EgressPolicy) AllowDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	for _, r := range p.Rules {
		if matchDomain(r.Domain, domain) {
			return r.Action == EgressActionAllow
		}
	}

	return p.Policy == EgressModeAllowAll
}

// matchDomain matches a domain against a pattern.
// Wildcard matches any subdomain but not the base domain itself.
func matchDomain(pattern, domain string) bool {
	pattern = strings.ToLower(pattern)

	if pattern == "*" {
		return true
	}

	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(domain, pattern[1:])
	}

	return pattern == domain
}
