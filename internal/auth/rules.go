package auth

import (
	"context"

	"github.com/ternarybob/importo/internal/interfaces"
)

// Marker and field-name data for the login flow. The remote site has no API
// contract; success, failure and MFA are all detected heuristically. Each
// decision point is an ordered, exported rule list so the behavior is
// auditable and extensible without touching the state machine.

// EmailFieldCandidates are tried in order when placing the account
// identifier into the signin form; the first name present in the form wins.
// If none are present the first candidate is added to the submission anyway.
var EmailFieldCandidates = []string{"email", "emailType", "username"}

// PasswordFieldCandidates work the same way for the secret.
var PasswordFieldCandidates = []string{"password", "passwd"}

// OTPFieldCandidates are tried in order when placing the one-time code into
// the MFA form; "otpCode" is also the fixed fallback name when none match.
var OTPFieldCandidates = []string{"otpCode", "code", "otp", "mfaCode"}

// OTPFallbackField receives the code when no candidate field exists.
const OTPFallbackField = "otpCode"

// RememberDeviceField is forced to true on MFA submission when present (and
// added when not, which the target accepts).
const RememberDeviceField = "rememberDevice"

// FailureMarkers in a post-submission body mean the credentials were
// rejected. Locale-specific strings are part of the contract drift.
var FailureMarkers = []string{
	"Your password is incorrect",
	"Passwort ist falsch",
	"auth-error-message-box",
}

// MFAMarkers in a post-submission body mean a second factor is required.
var MFAMarkers = []string{
	"auth-mfa-form",
	"otpCode",
	"verification code",
	"enter the code",
}

// MFAFailureMarkers in the post-MFA body mean the code was rejected.
var MFAFailureMarkers = []string{
	"auth-error-message-box",
	"verification failed",
}

// SessionCookieNames indicate an authenticated session when present after
// submission. A named-cookie match is a stronger signal than the account
// probe below.
var SessionCookieNames = []string{
	"ubid-main",
	"session-id",
	"sso_session",
	"x-main",
}

// AccountProbePath is fetched as a last-resort success check; the response
// must be a success status and contain one of AccountPageMarkers. This is
// the weakest heuristic and is logged as such.
const AccountProbePath = "/gp/your-account/home"

// AccountPageMarkers identify the authenticated account page across locales.
var AccountPageMarkers = []string{
	"Hello",
	"Meine Bestellungen",
	"Ihr Konto",
}

// SuccessCheck is one login-acceptance heuristic, run against the final
// post-submission body. Weak checks are logged at a higher level when they
// decide the outcome.
type SuccessCheck struct {
	Name  string
	Weak  bool
	Check func(ctx context.Context, nav interfaces.Navigator, siteRoot, body string) bool
}

// SuccessChecks are applied in order, strongest first: the page no longer
// shows the password prompt, a named session cookie exists, the account page
// answers. The first satisfied check accepts.
var SuccessChecks = []SuccessCheck{
	{Name: "no-password-prompt", Check: checkNoPasswordPrompt},
	{Name: "session-cookie", Check: checkSessionCookie},
	{Name: "account-probe", Weak: true, Check: checkAccountProbe},
}
