// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package msalclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/AzureAD/msal-go-b2c/apps/b2c"
	"github.com/AzureAD/msal-go-b2c/apps/config"
	b2cerrors "github.com/AzureAD/msal-go-b2c/apps/errors"
	"github.com/AzureAD/msal-go-b2c/apps/selector"
	"github.com/kylelemons/godebug/pretty"
)

const tenant = "775527ff-9a37-4307-8b3d-cc311f58d925"

var (
	susiAccount = public.Account{HomeAccountID: "u1-b2c_1_susi." + tenant, LocalAccountID: "u1", PreferredUsername: "alice@contoso.com"}
	editAccount = public.Account{HomeAccountID: "u1-b2c_1_edit." + tenant, LocalAccountID: "u1", PreferredUsername: "alice@contoso.com"}
)

type fakePublic struct {
	accounts    []public.Account
	accountsErr error
	result      public.AuthResult
	err         error

	silentScopes      []string
	interactiveScopes []string
	interactiveOpts   int
	removed           []public.Account
}

func (f *fakePublic) Accounts(ctx context.Context) ([]public.Account, error) {
	return f.accounts, f.accountsErr
}

func (f *fakePublic) RemoveAccount(ctx context.Context, account public.Account) error {
	f.removed = append(f.removed, account)
	return nil
}

func (f *fakePublic) AcquireTokenSilent(ctx context.Context, scopes []string, opts ...public.AcquireSilentOption) (public.AuthResult, error) {
	f.silentScopes = scopes
	return f.result, f.err
}

func (f *fakePublic) AcquireTokenInteractive(ctx context.Context, scopes []string, opts ...public.AcquireInteractiveOption) (public.AuthResult, error) {
	f.interactiveScopes = scopes
	f.interactiveOpts = len(opts)
	return f.result, f.err
}

func newTestClient(susi, edit *fakePublic, opts Options) *Client {
	return newClient([]policyClient{{name: "B2C_1_susi", client: susi}, {name: "B2C_1_edit", client: edit}}, opts)
}

func TestNew(t *testing.T) {
	policies := config.Policies{
		SignUpSignIn: config.Policy{Name: "B2C_1_susi", Authority: "https://contoso.b2clogin.com/contoso.onmicrosoft.com/B2C_1_susi"},
		EditProfile:  config.Policy{Name: "B2C_1_edit", Authority: "https://contoso.b2clogin.com/contoso.onmicrosoft.com/B2C_1_edit"},
	}
	c, err := New("00000000-0000-0000-0000-000000000000", policies, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.clients) != 2 || c.clients[0].name != "B2C_1_susi" {
		t.Fatalf("unexpected clients %v", c.clients)
	}
	if _, err := New("", policies, Options{}); err == nil {
		t.Error("expected an error for an empty client id")
	}
	if _, err := New("id", config.Policies{}, Options{}); err == nil {
		t.Error("expected an error without a sign-up/sign-in policy")
	}
}

func TestAccountsMerged(t *testing.T) {
	susi := &fakePublic{accounts: []public.Account{susiAccount, editAccount}}
	edit := &fakePublic{accounts: []public.Account{editAccount}}
	c := newTestClient(susi, edit, Options{})

	got, err := c.Accounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []selector.Account{
		{HomeAccountID: susiAccount.HomeAccountID, LocalAccountID: "u1", Username: "alice@contoso.com"},
		{HomeAccountID: editAccount.HomeAccountID, LocalAccountID: "u1", Username: "alice@contoso.com"},
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("accounts (-want +got):\n%s", diff)
	}

	edit.accountsErr = errors.New("cache corrupt")
	if _, err := c.Accounts(context.Background()); err == nil {
		t.Error("expected the cache error")
	}
}

func TestAccountByHomeID(t *testing.T) {
	c := newTestClient(&fakePublic{}, &fakePublic{accounts: []public.Account{editAccount}}, Options{})
	got, err := c.AccountByHomeID(context.Background(), editAccount.HomeAccountID)
	if err != nil {
		t.Fatal(err)
	}
	if got.HomeAccountID != editAccount.HomeAccountID {
		t.Errorf("got %q", got.HomeAccountID)
	}
	if _, err := c.AccountByHomeID(context.Background(), "missing"); !errors.Is(err, b2c.ErrNoAccount) {
		t.Errorf("got %v, want ErrNoAccount", err)
	}
}

func TestAcquireTokenSilent(t *testing.T) {
	expires := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	res := public.AuthResult{Account: susiAccount, AccessToken: "at", ExpiresOn: expires}
	res.IDToken.RawToken = "id-token"
	susi := &fakePublic{accounts: []public.Account{susiAccount}, result: res}
	c := newTestClient(susi, &fakePublic{}, Options{})
	account := selector.Account{HomeAccountID: susiAccount.HomeAccountID}

	got, err := c.AcquireTokenSilent(context.Background(), []string{"scope"}, account)
	if err != nil {
		t.Fatal(err)
	}
	want := b2c.AuthResult{
		Account:     selector.Account{HomeAccountID: susiAccount.HomeAccountID, LocalAccountID: "u1", Username: "alice@contoso.com"},
		IDToken:     "id-token",
		AccessToken: "at",
		ExpiresOn:   expires,
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}
	if diff := pretty.Compare([]string{"scope"}, susi.silentScopes); diff != "" {
		t.Errorf("scopes (-want +got):\n%s", diff)
	}

	_, err = c.AcquireTokenSilent(context.Background(), []string{"scope"}, selector.Account{HomeAccountID: "gone"})
	if !b2cerrors.IsInteractionRequired(err) {
		t.Errorf("uncached account: got %v, want interaction required", err)
	}
}

func TestAcquireTokenSilentErrors(t *testing.T) {
	callErr := func(status int, body string) error {
		return msalerrors.CallErr{Resp: &http.Response{StatusCode: status}, Err: errors.New(body)}
	}
	tests := []struct {
		desc string
		err  error
		want bool
	}{
		{desc: "cache miss", err: errors.New("no token found"), want: true},
		{desc: "refresh token expired", err: callErr(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"AADB2C90080"}`), want: true},
		{desc: "interaction required", err: callErr(http.StatusBadRequest, `{"error":"interaction_required"}`), want: true},
		{desc: "bad request", err: callErr(http.StatusBadRequest, `{"error":"invalid_request"}`)},
		{desc: "server error", err: callErr(http.StatusInternalServerError, "invalid_grant")},
		{desc: "network", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
		{desc: "cancelled", err: context.Canceled},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			susi := &fakePublic{accounts: []public.Account{susiAccount}, err: test.err}
			c := newTestClient(susi, &fakePublic{}, Options{})
			_, err := c.AcquireTokenSilent(context.Background(), nil, selector.Account{HomeAccountID: susiAccount.HomeAccountID})
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := b2cerrors.IsInteractionRequired(err); got != test.want {
				t.Errorf("IsInteractionRequired(%v) = %v, want %v", err, got, test.want)
			}
			if !errors.Is(err, test.err) && test.err != context.Canceled {
				t.Errorf("%v does not wrap %v", err, test.err)
			}
		})
	}
}

func TestAcquireTokenInteractive(t *testing.T) {
	susi := &fakePublic{}
	edit := &fakePublic{result: public.AuthResult{Account: editAccount}}
	c := newTestClient(susi, edit, Options{RedirectURI: "http://localhost:6060", OpenURL: func(string) error { return nil }})

	got, err := c.AcquireTokenInteractive(context.Background(), "b2c_1_EDIT", []string{"openid"}, b2c.InteractiveOptions{LoginHint: "alice@contoso.com"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Account.HomeAccountID != editAccount.HomeAccountID {
		t.Errorf("got account %q", got.Account.HomeAccountID)
	}
	if edit.interactiveOpts != 3 {
		t.Errorf("got %d options, want redirect URI, login hint and open URL", edit.interactiveOpts)
	}
	if susi.interactiveScopes != nil {
		t.Error("sign-in client should not have been used")
	}

	_, err = c.AcquireTokenInteractive(context.Background(), "B2C_1_reset", nil, b2c.InteractiveOptions{})
	if !errors.Is(err, b2c.ErrPolicyNotConfigured) {
		t.Errorf("got %v, want ErrPolicyNotConfigured", err)
	}

	edit.err = errors.New("access_denied: AADB2C90118: The user has forgotten their password.")
	_, err = c.AcquireTokenInteractive(context.Background(), "B2C_1_edit", nil, b2c.InteractiveOptions{})
	if !errors.Is(err, b2cerrors.ErrPasswordReset) || !errors.Is(err, edit.err) {
		t.Errorf("got %v, want ErrPasswordReset wrapping the MSAL error", err)
	}

	edit.err = errors.New("browser closed")
	if _, err := c.AcquireTokenInteractive(context.Background(), "B2C_1_edit", nil, b2c.InteractiveOptions{}); err != edit.err {
		t.Errorf("got %v, want the MSAL error unchanged", err)
	}
}

func TestRemoveAccount(t *testing.T) {
	susi := &fakePublic{accounts: []public.Account{susiAccount, editAccount}}
	edit := &fakePublic{accounts: []public.Account{editAccount}}
	c := newTestClient(susi, edit, Options{})

	if err := c.RemoveAccount(context.Background(), selector.Account{HomeAccountID: editAccount.HomeAccountID}); err != nil {
		t.Fatal(err)
	}
	if len(susi.removed) != 1 || len(edit.removed) != 1 {
		t.Errorf("account removed %d and %d times, want once per client", len(susi.removed), len(edit.removed))
	}
	if err := c.RemoveAccount(context.Background(), selector.Account{HomeAccountID: "missing"}); !errors.Is(err, b2c.ErrNoAccount) {
		t.Errorf("got %v, want ErrNoAccount", err)
	}
}
