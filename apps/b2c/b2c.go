// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package b2c drives the Azure AD B2C sign-in experience of a public client application on top
of an identity client such as MSAL.

A Client keeps an explicit session for the current user. On start, SelectAccount reconciles the
accounts in the identity client's cache with the configured user-flows. SignIn, EditProfile and
SignOut run the corresponding B2C flows, and PassTokenToAPI forwards an access token for the
signed-in user to the configured web API, acquiring one silently first and falling back to an
interactive flow when the user must take part.
*/
package b2c

import (
	"context"
	"errors"
	"time"

	"github.com/AzureAD/msal-go-b2c/apps/api"
	"github.com/AzureAD/msal-go-b2c/apps/config"
	"github.com/AzureAD/msal-go-b2c/apps/logger"
	"github.com/AzureAD/msal-go-b2c/apps/selector"
	"github.com/AzureAD/msal-go-b2c/apps/session"
	"github.com/pkg/browser"
)

var (
	// ErrNoAccount is returned by an IdentityClient when an account is not in its cache.
	ErrNoAccount = errors.New("account not found in the token cache")
	// ErrPolicyNotConfigured is returned when a flow needs a policy that is not configured.
	ErrPolicyNotConfigured = errors.New("policy not configured")
	// ErrNoAPI is returned by PassTokenToAPI when no web API is configured.
	ErrNoAPI = errors.New("no web API configured")
)

// AuthResult is the outcome of a token acquisition.
type AuthResult struct {
	Account selector.Account
	// IDToken is the raw ID token. It carries the policy claim of the flow that issued it.
	IDToken     string
	AccessToken string
	ExpiresOn   time.Time
}

// IsZero reports whether r is the zero AuthResult.
func (r AuthResult) IsZero() bool {
	return r.Account.IsZero() && r.IDToken == "" && r.AccessToken == "" && r.ExpiresOn.IsZero()
}

// InteractiveOptions are optional settings for an interactive flow.
type InteractiveOptions struct {
	// LoginHint pre-fills the user name on the B2C page.
	LoginHint string
}

// IdentityClient is the OAuth2/OIDC client that owns the token cache and the protocol exchanges.
type IdentityClient interface {
	// Accounts returns every account in the token cache.
	Accounts(ctx context.Context) ([]selector.Account, error)
	// AccountByHomeID returns the cached account with the given home account id, or ErrNoAccount.
	AccountByHomeID(ctx context.Context, homeAccountID string) (selector.Account, error)
	// AcquireTokenSilent returns a token for account from the cache or by refreshing it.
	// Failures that need the user are reported as interaction required.
	AcquireTokenSilent(ctx context.Context, scopes []string, account selector.Account) (AuthResult, error)
	// AcquireTokenInteractive runs the user-flow policy in the browser. A user who asks to reset
	// their password is reported as errors.ErrPasswordReset.
	AcquireTokenInteractive(ctx context.Context, policy selector.PolicyName, scopes []string, opts InteractiveOptions) (AuthResult, error)
	// RemoveAccount deletes account and its tokens from the cache.
	RemoveAccount(ctx context.Context, account selector.Account) error
}

// APICaller sends an access token to the downstream web API.
type APICaller interface {
	Call(ctx context.Context, accessToken string) (api.Response, error)
}

// Options configures a Client.
type Options struct {
	Policies config.Policies
	// LoginScopes are requested by sign-in and profile flows.
	LoginScopes []string
	// APIScopes are requested for the token passed to the web API.
	APIScopes             []string
	PostLogoutRedirectURI string
	// Strategy selects the current account. Defaults to selector.StrategyHeuristic.
	Strategy selector.Strategy
	// Caller is the web API. PassTokenToAPI fails with ErrNoAPI when it is nil.
	Caller APICaller
	// OpenURL opens the end-session page on sign-out. Defaults to the system browser.
	OpenURL func(url string) error
	// OnSignIn is called with the user name whenever a user becomes the current user.
	OnSignIn func(username string)
	Logger   *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Client orchestrates B2C flows for one user session.
type Client struct {
	identity IdentityClient
	opts     Options
	session  session.Session
	log      *logger.Logger
}

// New creates a Client over identity.
func New(identity IdentityClient, opts Options) (*Client, error) {
	if identity == nil {
		return nil, errors.New("identity client is nil")
	}
	if opts.Policies.SignUpSignIn.Name == "" {
		return nil, errors.New("sign-up/sign-in policy is required")
	}
	if opts.Strategy == "" {
		opts.Strategy = selector.StrategyHeuristic
	}
	if !opts.Strategy.Valid() {
		return nil, errors.New("unknown selection strategy " + string(opts.Strategy))
	}
	if opts.OpenURL == nil {
		opts.OpenURL = browser.OpenURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Client{identity: identity, opts: opts, log: log}, nil
}

// Session returns a copy of the current session.
func (c *Client) Session() session.Snapshot {
	return c.session.Snapshot()
}

func (c *Client) signUpSignIn() config.Policy {
	return c.opts.Policies.SignUpSignIn
}

// adopt makes account the current user.
func (c *Client) adopt(ctx context.Context, account selector.Account) {
	c.session.Start(account.HomeAccountID, account.Username)
	c.log.Log(ctx, logger.Info, "signed in", "username", account.Username, "homeAccountID", account.HomeAccountID)
	if c.opts.OnSignIn != nil {
		c.opts.OnSignIn(account.Username)
	}
}
