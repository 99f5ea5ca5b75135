// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package b2c

import (
	"context"
	"errors"
	"fmt"

	"github.com/AzureAD/msal-go-b2c/apps/api"
	b2cerrors "github.com/AzureAD/msal-go-b2c/apps/errors"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
)

// AcquireToken returns an access token for the web API scopes. It tries the identity client's
// cache first and runs the sign-up/sign-in flow when that needs the user, including when the
// silent response carries an empty access token. Other failures are returned unchanged.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	token, err := c.acquireSilent(ctx)
	if err == nil {
		return token, nil
	}
	if !b2cerrors.IsInteractionRequired(err) {
		return "", err
	}

	c.log.Log(ctx, logger.Info, "silent token acquisition failed, acquiring token interactively", "reason", err.Error())
	res, err := c.identity.AcquireTokenInteractive(ctx, c.signUpSignIn().Name, c.opts.APIScopes, InteractiveOptions{
		LoginHint: c.session.Username(),
	})
	if err != nil {
		return "", fmt.Errorf("acquiring token interactively: %w", err)
	}
	accepted, err := c.HandleRedirect(ctx, res)
	if err != nil {
		return "", err
	}
	if !accepted {
		return "", errors.New("interactive token response was not issued by the sign-in policy")
	}
	if res.AccessToken == "" {
		return "", errors.New("interactive token response has no access token")
	}
	c.session.SetToken(res.AccessToken, res.ExpiresOn)
	return res.AccessToken, nil
}

func (c *Client) acquireSilent(ctx context.Context) (string, error) {
	if !c.session.Active() {
		return "", b2cerrors.InteractionRequired("no signed-in account", nil)
	}
	account, err := c.identity.AccountByHomeID(ctx, c.session.AccountID())
	if errors.Is(err, ErrNoAccount) {
		return "", b2cerrors.InteractionRequired("signed-in account is not cached", err)
	}
	if err != nil {
		return "", err
	}

	res, err := c.identity.AcquireTokenSilent(ctx, c.opts.APIScopes, account)
	if err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", b2cerrors.InteractionRequired("empty access token", nil)
	}
	c.log.Log(ctx, logger.Info, "access token acquired", "at", c.opts.Now(), "expiresOn", res.ExpiresOn)
	c.session.SetToken(res.AccessToken, res.ExpiresOn)
	return res.AccessToken, nil
}

// PassTokenToAPI calls the web API with the session's access token, acquiring one first if the
// session has none. Failures to obtain a token and failed calls are logged and yield a nil
// response with a nil error. Only a cancelled context or a missing API configuration is
// returned as an error.
func (c *Client) PassTokenToAPI(ctx context.Context) (*api.Response, error) {
	if c.opts.Caller == nil {
		return nil, ErrNoAPI
	}
	token, ok := c.session.Token(c.opts.Now())
	if !ok {
		var err error
		token, err = c.AcquireToken(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Log(ctx, logger.Err, "failed to acquire an access token", "error", b2cerrors.Verbose(err))
			return nil, nil
		}
	}

	resp, err := c.opts.Caller.Call(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Log(ctx, logger.Err, "web API call failed", "error", err)
		return nil, nil
	}
	return &resp, nil
}
