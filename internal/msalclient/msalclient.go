// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package msalclient adapts MSAL public clients to b2c.IdentityClient.

B2C runs every user-flow under its own authority, so Client holds one MSAL public client per
configured policy. All of them share one token cache accessor; the accounts they see are merged.
*/
package msalclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	msalcache "github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/AzureAD/msal-go-b2c/apps/b2c"
	"github.com/AzureAD/msal-go-b2c/apps/config"
	b2cerrors "github.com/AzureAD/msal-go-b2c/apps/errors"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
	"github.com/AzureAD/msal-go-b2c/apps/selector"
)

var _ b2c.IdentityClient = (*Client)(nil)

// forgotPasswordCode is the B2C error the sign-in page redirects with on a password reset request.
const forgotPasswordCode = "AADB2C90118"

// publicClient is the subset of public.Client used here.
type publicClient interface {
	Accounts(ctx context.Context) ([]public.Account, error)
	RemoveAccount(ctx context.Context, account public.Account) error
	AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error)
	AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error)
}

// Options are optional settings for New.
type Options struct {
	// RedirectURI is the loopback URI registered for the application. MSAL picks a free
	// localhost port when it is empty.
	RedirectURI string
	// Cache persists tokens between runs. Tokens are kept in memory only when it is nil.
	Cache msalcache.ExportReplace
	// OpenURL opens the B2C page of interactive flows. MSAL uses the system browser when it is nil.
	OpenURL func(url string) error
	// HTTPClient replaces the client MSAL sends token requests with.
	HTTPClient *http.Client
	Logger     *logger.Logger
}

type policyClient struct {
	name   selector.PolicyName
	client publicClient
}

// Client is a b2c.IdentityClient backed by MSAL.
type Client struct {
	// clients are in config.Policies.All order, so clients[0] is the sign-up/sign-in policy.
	clients []policyClient
	opts    Options
	log     *logger.Logger
}

// New creates an MSAL public client for every policy in policies.
func New(clientID string, policies config.Policies, opts Options) (*Client, error) {
	if clientID == "" {
		return nil, errors.New("client id is required")
	}
	if policies.SignUpSignIn.IsZero() {
		return nil, errors.New("sign-up/sign-in policy is required")
	}
	var clients []policyClient
	for _, p := range policies.All() {
		o := []public.Option{
			public.WithAuthority(p.Authority),
			// B2C authorities are not known to AAD instance discovery.
			public.WithInstanceDiscovery(false),
		}
		if opts.Cache != nil {
			o = append(o, public.WithCache(opts.Cache))
		}
		if opts.HTTPClient != nil {
			o = append(o, public.WithHTTPClient(opts.HTTPClient))
		}
		pc, err := public.New(clientID, o...)
		if err != nil {
			return nil, fmt.Errorf("creating client for policy %s: %w", p.Name, err)
		}
		clients = append(clients, policyClient{name: p.Name, client: &pc})
	}
	return newClient(clients, opts), nil
}

func newClient(clients []policyClient, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Client{clients: clients, opts: opts, log: log}
}

func (c *Client) signIn() publicClient {
	return c.clients[0].client
}

func (c *Client) policy(name selector.PolicyName) (publicClient, bool) {
	for _, pc := range c.clients {
		if pc.name.Equal(name) {
			return pc.client, true
		}
	}
	return nil, false
}

// Accounts returns the accounts known to any policy client, without duplicates.
func (c *Client) Accounts(ctx context.Context) ([]selector.Account, error) {
	var out []selector.Account
	seen := map[string]bool{}
	for _, pc := range c.clients {
		accounts, err := pc.client.Accounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading accounts of policy %s: %w", pc.name, err)
		}
		for _, a := range accounts {
			if seen[a.HomeAccountID] {
				continue
			}
			seen[a.HomeAccountID] = true
			out = append(out, convertAccount(a))
		}
	}
	return out, nil
}

// AccountByHomeID returns the cached account with the given home account id, or b2c.ErrNoAccount.
func (c *Client) AccountByHomeID(ctx context.Context, homeAccountID string) (selector.Account, error) {
	_, a, err := c.find(ctx, homeAccountID)
	if err != nil {
		return selector.Account{}, err
	}
	return convertAccount(a), nil
}

// find returns the first policy client whose cache holds homeAccountID and the MSAL account.
func (c *Client) find(ctx context.Context, homeAccountID string) (publicClient, public.Account, error) {
	for _, pc := range c.clients {
		accounts, err := pc.client.Accounts(ctx)
		if err != nil {
			return nil, public.Account{}, fmt.Errorf("reading accounts of policy %s: %w", pc.name, err)
		}
		for _, a := range accounts {
			if a.HomeAccountID == homeAccountID {
				return pc.client, a, nil
			}
		}
	}
	return nil, public.Account{}, b2c.ErrNoAccount
}

// AcquireTokenSilent redeems the cache of the sign-up/sign-in policy for account. Failures that
// only the user can resolve are returned as interaction required.
func (c *Client) AcquireTokenSilent(ctx context.Context, scopes []string, account selector.Account) (b2c.AuthResult, error) {
	_, a, err := c.find(ctx, account.HomeAccountID)
	if err != nil {
		if errors.Is(err, b2c.ErrNoAccount) {
			return b2c.AuthResult{}, b2cerrors.InteractionRequired("account is not cached", err)
		}
		return b2c.AuthResult{}, err
	}
	res, err := c.signIn().AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(a))
	if err != nil {
		return b2c.AuthResult{}, classify(err)
	}
	return convertResult(res), nil
}

// AcquireTokenInteractive runs policy in the browser.
func (c *Client) AcquireTokenInteractive(ctx context.Context, policy selector.PolicyName, scopes []string, opts b2c.InteractiveOptions) (b2c.AuthResult, error) {
	pc, ok := c.policy(policy)
	if !ok {
		return b2c.AuthResult{}, fmt.Errorf("policy %s: %w", policy, b2c.ErrPolicyNotConfigured)
	}
	var o []public.AcquireInteractiveOption
	if c.opts.RedirectURI != "" {
		o = append(o, public.WithRedirectURI(c.opts.RedirectURI))
	}
	if opts.LoginHint != "" {
		o = append(o, public.WithLoginHint(opts.LoginHint))
	}
	if c.opts.OpenURL != nil {
		o = append(o, public.WithOpenURL(c.opts.OpenURL))
	}
	c.log.Log(ctx, logger.Debug, "acquiring token interactively", "policy", string(policy), "scopes", scopes)
	res, err := pc.AcquireTokenInteractive(ctx, scopes, o...)
	if err != nil {
		if forgotPassword(err) {
			return b2c.AuthResult{}, fmt.Errorf("%w: %w", b2cerrors.ErrPasswordReset, err)
		}
		return b2c.AuthResult{}, err
	}
	return convertResult(res), nil
}

// RemoveAccount deletes account from the cache of every policy client that holds it.
func (c *Client) RemoveAccount(ctx context.Context, account selector.Account) error {
	removed := false
	for _, pc := range c.clients {
		accounts, err := pc.client.Accounts(ctx)
		if err != nil {
			return fmt.Errorf("reading accounts of policy %s: %w", pc.name, err)
		}
		for _, a := range accounts {
			if a.HomeAccountID != account.HomeAccountID {
				continue
			}
			if err := pc.client.RemoveAccount(ctx, a); err != nil {
				return fmt.Errorf("removing account from policy %s: %w", pc.name, err)
			}
			removed = true
		}
	}
	if !removed {
		return b2c.ErrNoAccount
	}
	return nil
}

// classify marks silent failures the user can fix by signing in again. MSAL reports a cache
// miss as a plain error; the token endpoint rejects expired or revoked refresh tokens with
// invalid_grant or interaction_required.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if b2cerrors.StatusCode(err) != 0 {
		if b2cerrors.IsClientError(err) && needsUser(err.Error()) {
			return b2cerrors.InteractionRequired("refresh token rejected", err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return err
	}
	return b2cerrors.InteractionRequired("no usable token in the cache", err)
}

// forgotPassword reports whether an interactive flow ended because the user clicked
// "Forgot your password?" on the B2C sign-in page.
func forgotPassword(err error) bool {
	return strings.Contains(err.Error(), forgotPasswordCode)
}

func needsUser(msg string) bool {
	for _, code := range []string{"invalid_grant", "interaction_required", "login_required", "consent_required"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func convertAccount(a public.Account) selector.Account {
	return selector.Account{
		HomeAccountID:  a.HomeAccountID,
		LocalAccountID: a.LocalAccountID,
		Username:       a.PreferredUsername,
	}
}

func convertResult(res public.AuthResult) b2c.AuthResult {
	return b2c.AuthResult{
		Account:     convertAccount(res.Account),
		IDToken:     res.IDToken.RawToken,
		AccessToken: res.AccessToken,
		ExpiresOn:   res.ExpiresOn,
	}
}
