// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package selector decides which cached account, if any, is the signed-in user of an
Azure AD B2C application.

MSAL caches the result of every user-flow as its own account. After a user signs in with the
sign-up/sign-in policy and then runs a second flow (edit profile, reset password), the cache
holds one account per flow for the same person. The functions here reconcile that state into
at most one current account, or report that the cache is inconsistent and the user must be
signed out.
*/
package selector

import (
	"fmt"
	"strings"
)

// Account is a cached identity as reported by the identity client.
type Account struct {
	HomeAccountID  string `json:"home_account_id,omitempty"`
	LocalAccountID string `json:"local_account_id,omitempty"`
	Username       string `json:"username,omitempty"`
}

// IsZero reports whether a is the zero Account.
func (a Account) IsZero() bool {
	return a == Account{}
}

// PolicyName names a B2C user-flow, such as "B2C_1_susi".
type PolicyName string

// Equal compares two policy names the way B2C does, ignoring case.
func (p PolicyName) Equal(other PolicyName) bool {
	return strings.EqualFold(string(p), string(other))
}

// Kind is the outcome of a selection.
type Kind int

const (
	// NoAccount means no user is signed in.
	NoAccount Kind = iota
	// SingleAccount means Result.Account is the current user.
	SingleAccount
	// ForceSignOut means the cache holds conflicting identities and must be cleared.
	ForceSignOut
)

func (k Kind) String() string {
	switch k {
	case NoAccount:
		return "NoAccount"
	case SingleAccount:
		return "SingleAccount"
	case ForceSignOut:
		return "ForceSignOut"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the outcome of Select or SelectTagged. Account is only set when Kind is SingleAccount.
type Result struct {
	Kind    Kind
	Account Account
}

func single(a Account) Result {
	return Result{Kind: SingleAccount, Account: a}
}

// Select picks the current account from accounts.
//
// A lone cached account is always selected, whatever policies holds. When there are as many
// cached accounts as configured policies, the cache is assumed to hold one account per
// user-flow, and only accounts created by signUpSignIn are considered: their home account id
// contains the policy name (ignoring case) and their local account id. If more than one such
// account remains they must all belong to the same local account, otherwise the result is
// ForceSignOut. Any other shape of cache yields NoAccount.
//
// Select does not modify accounts.
func Select(accounts []Account, policies []PolicyName, signUpSignIn PolicyName) Result {
	switch {
	case len(accounts) == 0:
		return Result{Kind: NoAccount}
	case len(accounts) == 1:
		return single(accounts[0])
	case len(accounts) == len(policies):
		return fromCandidates(signInAccounts(accounts, signUpSignIn))
	}
	return Result{Kind: NoAccount}
}

// signInAccounts returns the accounts whose home id was produced by the sign-up/sign-in policy.
func signInAccounts(accounts []Account, signUpSignIn PolicyName) []Account {
	policy := strings.ToUpper(string(signUpSignIn))
	var out []Account
	for _, a := range accounts {
		if !strings.Contains(strings.ToUpper(a.HomeAccountID), policy) {
			continue
		}
		if !strings.Contains(a.HomeAccountID, a.LocalAccountID) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// fromCandidates reduces the accounts left after filtering to a Result.
func fromCandidates(candidates []Account) Result {
	switch len(candidates) {
	case 0:
		return Result{Kind: NoAccount}
	case 1:
		return single(candidates[0])
	}
	first := candidates[0]
	for _, c := range candidates[1:] {
		if c.LocalAccountID != first.LocalAccountID {
			return Result{Kind: ForceSignOut}
		}
	}
	return single(first)
}
