// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package selector

import "strings"

// TaggedAccount is an account labelled with the user-flow that produced it.
// Policy is empty when no configured policy could be attributed.
type TaggedAccount struct {
	Policy  PolicyName
	Account Account
}

// PolicyOf returns the configured policy that produced an account with the given home account id.
//
// For B2C the home account id has the form "<objectId>-<policy>.<tenantId>", with the policy
// lower-cased. Only that segment is inspected, so a policy name occurring elsewhere in the id
// does not count.
func PolicyOf(homeAccountID string, policies []PolicyName) (PolicyName, bool) {
	uid, _, ok := strings.Cut(homeAccountID, ".")
	if !ok {
		return "", false
	}
	for _, p := range policies {
		if p == "" {
			continue
		}
		suffix := "-" + strings.ToLower(string(p))
		if strings.HasSuffix(strings.ToLower(uid), suffix) {
			return p, true
		}
	}
	return "", false
}

// Tag labels each account with the policy that produced it. The returned slice is new and has
// the same order as accounts.
func Tag(accounts []Account, policies []PolicyName) []TaggedAccount {
	tagged := make([]TaggedAccount, 0, len(accounts))
	for _, a := range accounts {
		p, _ := PolicyOf(a.HomeAccountID, policies)
		tagged = append(tagged, TaggedAccount{Policy: p, Account: a})
	}
	return tagged
}

// SelectTagged picks the current account using explicit policy tags rather than comparing the
// number of cached accounts against the number of policies.
//
// Only accounts tagged with signUpSignIn are candidates. No candidate means NoAccount, candidates
// that all share a local account id select the first of them, and candidates for different local
// accounts yield ForceSignOut.
func SelectTagged(accounts []TaggedAccount, signUpSignIn PolicyName) Result {
	var candidates []Account
	for _, t := range accounts {
		if t.Policy.Equal(signUpSignIn) && t.Policy != "" {
			candidates = append(candidates, t.Account)
		}
	}
	return fromCandidates(candidates)
}

// Strategy names a selection algorithm.
type Strategy string

const (
	// StrategyHeuristic uses Select. It is the default.
	StrategyHeuristic Strategy = "heuristic"
	// StrategyTagged uses Tag and SelectTagged.
	StrategyTagged Strategy = "tagged"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyTagged || s == StrategyHeuristic
}

// Apply runs the strategy s over accounts. The zero Strategy runs Select.
func (s Strategy) Apply(accounts []Account, policies []PolicyName, signUpSignIn PolicyName) Result {
	if s == StrategyTagged {
		return SelectTagged(Tag(accounts, policies), signUpSignIn)
	}
	return Select(accounts, policies, signUpSignIn)
}
