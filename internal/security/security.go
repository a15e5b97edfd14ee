// Package security decides whether a play or publish attempt from a given
// IPv4 address is permitted by an ordered list of allow/deny directives.
// Evaluation is stateless and synchronous; a Security value may be shared by
// any number of goroutines as long as the ruleset is not mutated mid-check.
package security

import (
	"fmt"
	"log/slog"
)

// DeniedError is the verdict for a rejected attempt. Reason names the rule
// or default policy that produced the denial.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return e.Reason
}

// Security evaluates admission rules for one vhost. When disabled, every
// attempt is permitted without consulting the ruleset.
type Security struct {
	enabled bool
}

func New(enabled bool) *Security {
	return &Security{enabled: enabled}
}

func (s *Security) Enabled() bool {
	return s.enabled
}

// Check returns nil when the attempt is permitted and a *DeniedError
// otherwise. A nil ruleset denies immediately. Both scans always run over
// the full ruleset; a deny match is overridden whenever the allow side
// permits, whether through an explicit allow match or through the
// deny-only-ruleset default.
func (s *Security) Check(rules *RuleSet, op Operation, addr string) error {
	if !s.enabled {
		return nil
	}
	if rules == nil {
		return &DeniedError{Reason: fmt.Sprintf("default deny for %s", addr)}
	}

	deny := scanDeny(rules, op, addr)
	allow := scanAllow(rules, op, addr)

	var allowErr *DeniedError
	if !allow.matched && allow.defaultDenied() {
		allowErr = &DeniedError{Reason: fmt.Sprintf(
			"not allowed by any of %d/%d rules", allow.allowRules, allow.denyRules)}
	}

	if deny.matched && allowErr == nil {
		slog.Info("allow rule has precedence over deny",
			slog.String("addr", addr),
			slog.String("operation", op.String()),
			slog.String("deny_target", deny.target))
		return nil
	}

	if deny.matched {
		denyErr := &DeniedError{Reason: fmt.Sprintf("deny by rule<%s>", deny.target)}
		if allowErr != nil {
			denyErr.Reason = denyErr.Reason + "; " + allowErr.Reason
		}
		return denyErr
	}
	if allowErr != nil {
		return allowErr
	}
	return nil
}
