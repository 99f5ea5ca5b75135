// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package b2c

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AzureAD/msal-go-b2c/apps/config"
	b2cerrors "github.com/AzureAD/msal-go-b2c/apps/errors"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
)

// SignIn runs the sign-up/sign-in flow. It reports whether the result was accepted as the current
// user. When the flow fails with errors.ErrPasswordReset and a reset policy is configured, the
// reset flow runs and sign-in is attempted once more.
func (c *Client) SignIn(ctx context.Context) (bool, error) {
	res, err := c.interactive(ctx, c.signUpSignIn())
	if errors.Is(err, b2cerrors.ErrPasswordReset) && !c.opts.Policies.ResetPassword.IsZero() {
		c.log.Log(ctx, logger.Info, "user requested a password reset")
		if err := c.ResetPassword(ctx); err != nil {
			return false, err
		}
		res, err = c.interactive(ctx, c.signUpSignIn())
	}
	if err != nil {
		return false, fmt.Errorf("signing in: %w", err)
	}
	return c.HandleRedirect(ctx, res)
}

// EditProfile runs the profile editing flow for the current user. The flow caches its own account,
// so the current user is selected again afterwards.
func (c *Client) EditProfile(ctx context.Context) error {
	return c.secondaryFlow(ctx, c.opts.Policies.EditProfile, "edit profile")
}

// ResetPassword runs the password reset flow.
func (c *Client) ResetPassword(ctx context.Context) error {
	return c.secondaryFlow(ctx, c.opts.Policies.ResetPassword, "reset password")
}

func (c *Client) secondaryFlow(ctx context.Context, policy config.Policy, name string) error {
	if policy.IsZero() {
		return fmt.Errorf("%s: %w", name, ErrPolicyNotConfigured)
	}
	res, err := c.interactive(ctx, policy)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := c.HandleRedirect(ctx, res); err != nil {
		return err
	}
	_, err = c.SelectAccount(ctx)
	return err
}

func (c *Client) interactive(ctx context.Context, policy config.Policy) (AuthResult, error) {
	c.log.Log(ctx, logger.Debug, "starting interactive flow", "policy", string(policy.Name))
	return c.identity.AcquireTokenInteractive(ctx, policy.Name, c.opts.LoginScopes, InteractiveOptions{
		LoginHint: c.session.Username(),
	})
}

// SignOut removes every cached account, clears the session and opens the B2C end-session page.
// Failing to open the page is logged, not returned.
func (c *Client) SignOut(ctx context.Context) error {
	accounts, err := c.identity.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("listing cached accounts: %w", err)
	}
	var errs []error
	for _, a := range accounts {
		if err := c.identity.RemoveAccount(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("removing account %s: %w", a.HomeAccountID, err))
		}
	}
	c.session.Clear()
	c.log.Log(ctx, logger.Info, "signed out", "removedAccounts", len(accounts)-len(errs))

	logoutURL, err := LogoutURL(c.signUpSignIn().Authority, c.opts.PostLogoutRedirectURI)
	if err != nil {
		c.log.Log(ctx, logger.Warn, "cannot build end-session URL", "error", err)
	} else if err := c.opts.OpenURL(logoutURL); err != nil {
		c.log.Log(ctx, logger.Warn, "cannot open end-session URL", "url", logoutURL, "error", err)
	}
	return errors.Join(errs...)
}

// LogoutURL returns the B2C end-session endpoint of authority, redirecting back to
// postLogoutRedirectURI when it is set.
func LogoutURL(authority, postLogoutRedirectURI string) (string, error) {
	u, err := url.Parse(authority)
	if err != nil {
		return "", fmt.Errorf("authority cannot be URL parsed: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("authority(%s) is not an absolute https URL", authority)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/oauth2/v2.0/logout"
	u.RawQuery = ""
	if postLogoutRedirectURI != "" {
		q := url.Values{}
		q.Set("post_logout_redirect_uri", postLogoutRedirectURI)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
