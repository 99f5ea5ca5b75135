// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package selector

import (
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

const (
	susi        PolicyName = "B2C_1_susi"
	editProfile PolicyName = "B2C_1_edit_profile"
	tenant                 = "775527ff-9a37-4307-8b3d-cc311f58d925"
)

var policies = []PolicyName{susi, editProfile}

func acct(oid string, policy PolicyName, username string) Account {
	return Account{
		HomeAccountID:  oid + "-" + string(policy) + "." + tenant,
		LocalAccountID: oid,
		Username:       username,
	}
}

func TestSelect(t *testing.T) {
	alice := acct("u1", "b2c_1_susi", "alice@contoso.com")
	aliceUpper := acct("u1", "B2C_1_SUSI", "alice@contoso.com")
	aliceEdit := acct("u1", "b2c_1_edit_profile", "alice@contoso.com")
	bob := acct("u2", "b2c_1_susi", "bob@contoso.com")

	tests := []struct {
		desc     string
		accounts []Account
		policies []PolicyName
		want     Result
	}{
		{
			desc:     "empty cache",
			policies: policies,
			want:     Result{Kind: NoAccount},
		},
		{
			desc:     "single account ignores policy count",
			accounts: []Account{aliceEdit},
			policies: []PolicyName{susi},
			want:     Result{Kind: SingleAccount, Account: aliceEdit},
		},
		{
			desc:     "single account with more policies",
			accounts: []Account{bob},
			policies: policies,
			want:     Result{Kind: SingleAccount, Account: bob},
		},
		{
			desc:     "same user cached twice by sign-in policy",
			accounts: []Account{alice, aliceUpper},
			policies: policies,
			want:     Result{Kind: SingleAccount, Account: alice},
		},
		{
			desc:     "different users cached by sign-in policy",
			accounts: []Account{alice, bob},
			policies: policies,
			want:     Result{Kind: ForceSignOut},
		},
		{
			desc:     "one sign-in account and one edit-profile account",
			accounts: []Account{aliceEdit, alice},
			policies: policies,
			want:     Result{Kind: SingleAccount, Account: alice},
		},
		{
			desc: "no account from sign-in policy",
			accounts: []Account{
				aliceEdit,
				acct("u2", "b2c_1_edit_profile", "bob@contoso.com"),
			},
			policies: policies,
			want:     Result{Kind: NoAccount},
		},
		{
			desc: "home id missing local id is filtered",
			accounts: []Account{
				{HomeAccountID: "other-b2c_1_susi." + tenant, LocalAccountID: "u1"},
				aliceEdit,
			},
			policies: policies,
			want:     Result{Kind: NoAccount},
		},
		{
			desc:     "count mismatch with several accounts",
			accounts: []Account{alice, aliceEdit, bob},
			policies: policies,
			want:     Result{Kind: NoAccount},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got := Select(test.accounts, test.policies, susi)
			if diff := pretty.Compare(test.want, got); diff != "" {
				t.Errorf("Select(): -want/+got:\n%s", diff)
			}
		})
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	accounts := []Account{acct("u1", "b2c_1_susi", "alice"), acct("u1", "b2c_1_edit_profile", "alice")}
	before := append([]Account(nil), accounts...)

	first := Select(accounts, policies, susi)
	second := Select(accounts, policies, susi)
	if diff := pretty.Compare(first, second); diff != "" {
		t.Errorf("second Select() differs: -first/+second:\n%s", diff)
	}
	if diff := pretty.Compare(before, accounts); diff != "" {
		t.Errorf("Select() modified its input: -before/+after:\n%s", diff)
	}
}

func TestPolicyOf(t *testing.T) {
	tests := []struct {
		homeID string
		want   PolicyName
		ok     bool
	}{
		{homeID: "u1-b2c_1_susi." + tenant, want: susi, ok: true},
		{homeID: "u1-B2C_1_EDIT_PROFILE." + tenant, want: editProfile, ok: true},
		{homeID: "u1-b2c_1_reset." + tenant},
		{homeID: "u1." + tenant + "-b2c_1_susi"},
		{homeID: "no-dot-b2c_1_susi"},
		{homeID: ""},
	}
	for _, test := range tests {
		got, ok := PolicyOf(test.homeID, policies)
		if got != test.want || ok != test.ok {
			t.Errorf("PolicyOf(%q): got (%q, %v), want (%q, %v)", test.homeID, got, ok, test.want, test.ok)
		}
	}
}

func TestSelectTagged(t *testing.T) {
	alice := acct("u1", "b2c_1_susi", "alice")
	aliceAgain := acct("u1", "B2C_1_susi", "alice")
	aliceEdit := acct("u1", "b2c_1_edit_profile", "alice")
	bob := acct("u2", "b2c_1_susi", "bob")
	stranger := Account{HomeAccountID: "u3.tenant", LocalAccountID: "u3"}

	tests := []struct {
		desc     string
		accounts []Account
		want     Result
	}{
		{desc: "empty", want: Result{Kind: NoAccount}},
		{
			desc:     "edit profile only",
			accounts: []Account{aliceEdit},
			want:     Result{Kind: NoAccount},
		},
		{
			desc:     "count differs from policies",
			accounts: []Account{aliceEdit, stranger, alice},
			want:     Result{Kind: SingleAccount, Account: alice},
		},
		{
			desc:     "same user",
			accounts: []Account{alice, aliceAgain, aliceEdit},
			want:     Result{Kind: SingleAccount, Account: alice},
		},
		{
			desc:     "conflicting users",
			accounts: []Account{alice, bob},
			want:     Result{Kind: ForceSignOut},
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got := SelectTagged(Tag(test.accounts, policies), susi)
			if diff := pretty.Compare(test.want, got); diff != "" {
				t.Errorf("SelectTagged(): -want/+got:\n%s", diff)
			}
		})
	}
}

func TestStrategyApply(t *testing.T) {
	// three accounts against two policies: the heuristic gives up, tags do not
	accounts := []Account{
		acct("u1", "b2c_1_edit_profile", "alice"),
		acct("u1", "b2c_1_susi", "alice"),
		{HomeAccountID: "legacy", LocalAccountID: "legacy"},
	}
	if got := StrategyHeuristic.Apply(accounts, policies, susi); got.Kind != NoAccount {
		t.Errorf("heuristic: got %v, want NoAccount", got.Kind)
	}
	got := StrategyTagged.Apply(accounts, policies, susi)
	if got.Kind != SingleAccount || got.Account != accounts[1] {
		t.Errorf("tagged: got %+v, want SingleAccount(%+v)", got, accounts[1])
	}
	if got := Strategy("").Apply(accounts, policies, susi); got.Kind != NoAccount {
		t.Errorf("zero strategy: got %v, want the heuristic's NoAccount", got.Kind)
	}
	if Strategy("random").Valid() {
		t.Error("unknown strategy reported as valid")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{NoAccount: "NoAccount", SingleAccount: "SingleAccount", ForceSignOut: "ForceSignOut", Kind(7): "Kind(7)"} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
