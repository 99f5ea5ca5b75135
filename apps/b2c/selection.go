// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package b2c

import (
	"context"
	"fmt"

	"github.com/AzureAD/msal-go-b2c/apps/claims"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
	"github.com/AzureAD/msal-go-b2c/apps/selector"
)

// SelectAccount picks the current user from the identity client's cache. A SingleAccount result
// starts the session for that account; ForceSignOut signs everyone out. NoAccount leaves the
// session as it is.
func (c *Client) SelectAccount(ctx context.Context) (selector.Result, error) {
	accounts, err := c.identity.Accounts(ctx)
	if err != nil {
		return selector.Result{}, fmt.Errorf("listing cached accounts: %w", err)
	}

	res := c.opts.Strategy.Apply(accounts, c.opts.Policies.Names(), c.signUpSignIn().Name)
	c.log.Log(ctx, logger.Debug, "account selection", "accounts", len(accounts), "strategy", string(c.opts.Strategy), "result", res.Kind.String())

	switch res.Kind {
	case selector.SingleAccount:
		c.adopt(ctx, res.Account)
	case selector.ForceSignOut:
		c.log.Log(ctx, logger.Warn, "cached accounts belong to different users, signing out", "accounts", len(accounts))
		if err := c.SignOut(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// HandleRedirect processes the result of an interactive flow. Only results issued by the
// sign-up/sign-in policy identify the user; results of other flows are ignored and reported as
// not accepted. A zero result falls back to SelectAccount.
func (c *Client) HandleRedirect(ctx context.Context, res AuthResult) (bool, error) {
	if res.IsZero() {
		r, err := c.SelectAccount(ctx)
		return r.Kind == selector.SingleAccount, err
	}

	want := string(c.signUpSignIn().Name)
	if !claims.MatchesPolicy(res.IDToken, want) {
		got, err := claims.Policy(res.IDToken)
		c.log.Log(ctx, logger.Info, "ignoring token response not issued by the sign-in policy", "policy", got, "want", want, "error", err)
		return false, nil
	}
	c.adopt(ctx, res.Account)
	return true, nil
}
