package discovery

import "strings"

// The target site has no stable contract for where its login entry point or
// form lives; markup drifts between regions and rollouts. Every decision
// point is therefore an ordered rule list that can be extended without
// touching the traversal code. First match wins, ties broken by document
// order.

// SigninPathMarkers identify hrefs and form actions that belong to the signin
// flow.
var SigninPathMarkers = []string{
	"ap/signin",
	"/signin",
	"nav_signin",
}

// LoginLinkRules locate the login entry anchor on the landing page, in
// priority order.
var LoginLinkRules = []LinkRule{
	{
		Name:     "account-list-anchor",
		Selector: "a#nav-link-accountList",
	},
	{
		Name:        "signin-path-anchor",
		Selector:    "a[href]",
		HrefMarkers: SigninPathMarkers,
	},
	{
		Name:          "signin-form-action",
		Selector:      "form",
		ActionMarkers: SigninPathMarkers,
	},
}

// SigninFormRules locate the credential form on the signin page, in priority
// order.
var SigninFormRules = []FormRule{
	{
		Name:     "named-signin-form",
		Selector: `form[name="signIn"], form#ap_signin_form`,
	},
	{
		Name:          "signin-action-form",
		Selector:      "form",
		ActionMarkers: SigninPathMarkers,
	},
	{
		Name:     "first-form",
		Selector: "form",
	},
}

// MFAFormRules locate the one-time-code form after credential submission.
var MFAFormRules = []FormRule{
	{
		Name:     "mfa-form",
		Selector: "form#auth-mfa-form",
	},
	{
		Name:     "first-form",
		Selector: "form",
	},
}

// LinkRule matches an anchor (or a form acting as an entry point) and yields
// its target URL. HrefMarkers / ActionMarkers, when set, require the target
// to contain at least one marker substring.
type LinkRule struct {
	Name          string
	Selector      string
	HrefMarkers   []string
	ActionMarkers []string
}

// FormRule matches a form element. ActionMarkers, when set, require the
// form's action to contain at least one marker substring.
type FormRule struct {
	Name          string
	Selector      string
	ActionMarkers []string
}

func matchesAny(value string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(value, marker) {
			return true
		}
	}
	return false
}
