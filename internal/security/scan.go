package security

// denyResult is the outcome of one deny scan.
type denyResult struct {
	matched bool
	target  string
}

// scanDeny walks the ruleset in order and returns the first deny directive
// applicable to op whose target matches addr.
func scanDeny(rules *RuleSet, op Operation, addr string) denyResult {
	for _, d := range rules.Directives {
		if d.Action != ActionDeny {
			continue
		}
		if !op.applicable(d.Operation) {
			continue
		}
		if Matches(addr, d.Target) {
			return denyResult{matched: true, target: d.Target}
		}
	}
	return denyResult{}
}

// allowResult is the outcome of one allow scan. allowRules and denyRules
// count every allow/deny directive in the ruleset, whether or not its
// operation scope applies to the attempt; the default policy depends on
// these population counts, not on the applicable subset.
type allowResult struct {
	matched    bool
	target     string
	allowRules int
	denyRules  int
}

// scanAllow walks the ruleset in order, counting directives by action, and
// returns on the first allow directive applicable to op whose target matches
// addr. The counts are partial after a match; callers only consult them when
// nothing matched.
func scanAllow(rules *RuleSet, op Operation, addr string) allowResult {
	var res allowResult
	for _, d := range rules.Directives {
		switch d.Action {
		case ActionAllow:
			res.allowRules++
		case ActionDeny:
			res.denyRules++
			continue
		default:
			continue
		}
		if !op.applicable(d.Operation) {
			continue
		}
		if Matches(addr, d.Target) {
			res.matched = true
			res.target = d.Target
			return res
		}
	}
	return res
}

// defaultDenied reports whether an allow scan that matched nothing falls
// through to a denial. A ruleset holding at least one allow directive, or no
// directives of either action, denies by default; a ruleset made up of deny
// directives only permits whatever those directives did not block.
func (r allowResult) defaultDenied() bool {
	return r.allowRules > 0 || r.allowRules+r.denyRules == 0
}
