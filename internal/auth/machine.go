// Package auth drives the multi-step login sequence against the storefront.
// The flow is a state machine over an engine-agnostic Navigator: every
// transition is triggered by one navigation or form submission and decided by
// ordered marker rules, because the target exposes no stable API contract.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/discovery"
	"github.com/ternarybob/importo/internal/interfaces"
	"github.com/ternarybob/importo/internal/models"
	"github.com/ternarybob/importo/internal/totp"
)

// State identifies the machine's position in the login sequence.
type State string

const (
	StateInit                 State = "init"
	StateLandingLoaded        State = "landing_loaded"
	StateSigninFormLoaded     State = "signin_form_loaded"
	StateCredentialsSubmitted State = "credentials_submitted"
	StateMfaRequired          State = "mfa_required"
	StateMfaSubmitted         State = "mfa_submitted"
	StateAuthenticated        State = "authenticated"
	StateFailed               State = "failed"
)

// Credentials are immutable for the duration of one cycle. The secret and
// MFA seed are never logged unmasked.
type Credentials struct {
	Email    string
	Password string
	MFASeed  string
}

// Error is a terminal authentication failure with its classified reason.
type Error struct {
	Reason models.FailReason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from an error returned by Run.
func ReasonOf(err error) models.FailReason {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return models.ReasonNone
}

// Machine executes the login sequence. One machine serves one cycle; it is
// not safe for concurrent use and is discarded after Run returns.
type Machine struct {
	nav      interfaces.Navigator
	creds    *Credentials
	siteRoot string
	logger   arbor.ILogger
	state    State
}

// NewMachine creates a machine bound to a navigator and a site root.
func NewMachine(nav interfaces.Navigator, creds *Credentials, siteRoot string, logger arbor.ILogger) *Machine {
	return &Machine{
		nav:      nav,
		creds:    creds,
		siteRoot: siteRoot,
		logger:   logger,
		state:    StateInit,
	}
}

// State returns the machine's current state.
func (m *Machine) State() State {
	return m.state
}

// Run drives the machine to a terminal state. A nil return means
// StateAuthenticated; any non-nil return is an *Error carrying the reason,
// and the machine is in StateFailed.
func (m *Machine) Run(ctx context.Context) error {
	body, err := m.submitCredentials(ctx)
	if err != nil {
		return m.fail(models.ReasonNone, err)
	}

	// Explicit rejection beats every other heuristic.
	if marker := firstMarker(body, FailureMarkers); marker != "" {
		m.logger.Warn().Str("marker", marker).Msg("Credential submission rejected")
		return m.fail(models.ReasonBadCredentials, nil)
	}

	if marker := firstMarker(body, MFAMarkers); marker != "" {
		if m.creds.MFASeed == "" {
			m.logger.Warn().Str("marker", marker).Msg("MFA challenge presented but no seed configured")
			return m.fail(models.ReasonMfaRequiredNoSeed, nil)
		}
		m.state = StateMfaRequired
		m.logger.Debug().Str("marker", marker).Msg("MFA challenge detected")

		body, err = m.submitMFA(ctx, body)
		if err != nil {
			return m.fail(models.ReasonNone, err)
		}

		if marker := firstMarker(body, MFAFailureMarkers); marker != "" {
			m.logger.Warn().Str("marker", marker).Msg("MFA code rejected")
			return m.fail(models.ReasonMfaRejected, nil)
		}
	}

	if err := m.confirmLogin(ctx, body); err != nil {
		return m.fail(models.ReasonNone, err)
	}

	m.state = StateAuthenticated
	m.logger.Info().Msg("Login confirmed")
	return nil
}

// submitCredentials walks Init -> LandingLoaded -> SigninFormLoaded ->
// CredentialsSubmitted and returns the post-submission body.
func (m *Machine) submitCredentials(ctx context.Context) (string, error) {
	landing, err := m.navigate(ctx, m.siteRoot)
	if err != nil {
		return "", err
	}
	m.state = StateLandingLoaded

	landingDoc, err := discovery.ParseDocument(landing.Body)
	if err != nil {
		return "", &Error{Reason: models.ReasonLoginLinkNotFound, Err: err}
	}
	loginURL, err := discovery.FindLoginLink(landingDoc, m.siteRoot, m.logger)
	if err != nil {
		return "", &Error{Reason: models.ReasonLoginLinkNotFound, Err: err}
	}

	signin, err := m.navigate(ctx, loginURL)
	if err != nil {
		return "", err
	}
	m.state = StateSigninFormLoaded

	signinDoc, err := discovery.ParseDocument(signin.Body)
	if err != nil {
		return "", &Error{Reason: models.ReasonFormNotFound, Err: err}
	}
	form, err := discovery.FindSigninForm(signinDoc, m.siteRoot, m.logger)
	if err != nil {
		return "", &Error{Reason: classifyFormError(err), Err: err}
	}

	placeField(form, EmailFieldCandidates, m.creds.Email)
	placeField(form, PasswordFieldCandidates, m.creds.Password)

	m.logger.Debug().
		Str("action", form.ActionURL).
		Str("email", m.creds.Email).
		Str("password", common.Mask(m.creds.Password, 0)).
		Str("mfa_seed", common.Mask(m.creds.MFASeed, 2)).
		Msg("Submitting signin form")

	resp, err := m.nav.SubmitForm(ctx, form.ActionURL, form.Values())
	if err != nil {
		return "", &Error{Reason: models.ReasonNetworkError, Err: err}
	}
	m.state = StateCredentialsSubmitted

	return resp.Body, nil
}

// submitMFA walks MfaRequired -> MfaSubmitted and returns the post-MFA body.
func (m *Machine) submitMFA(ctx context.Context, challengeBody string) (string, error) {
	doc, err := discovery.ParseDocument(challengeBody)
	if err != nil {
		return "", &Error{Reason: models.ReasonMfaFormNotFound, Err: err}
	}
	form, err := discovery.FindMFAForm(doc, m.siteRoot, m.logger)
	if err != nil {
		return "", &Error{Reason: models.ReasonMfaFormNotFound, Err: err}
	}

	code, err := totp.Generate(m.creds.MFASeed)
	if err != nil {
		return "", &Error{Reason: models.ReasonTotpGeneration, Err: err}
	}

	placed := false
	for _, candidate := range OTPFieldCandidates {
		if form.Has(candidate) {
			form.Set(candidate, code)
			placed = true
			break
		}
	}
	if !placed {
		form.Set(OTPFallbackField, code)
	}
	form.Set(RememberDeviceField, "true")

	m.logger.Debug().
		Str("action", form.ActionURL).
		Str("code", common.Mask(code, 0)).
		Msg("Submitting MFA form")

	resp, err := m.nav.SubmitForm(ctx, form.ActionURL, form.Values())
	if err != nil {
		return "", &Error{Reason: models.ReasonNetworkError, Err: err}
	}
	m.state = StateMfaSubmitted

	return resp.Body, nil
}

// confirmLogin applies SuccessChecks in order to the final body. The first
// satisfied check accepts; none satisfied means the outcome is too ambiguous
// to trust.
func (m *Machine) confirmLogin(ctx context.Context, body string) error {
	for _, check := range SuccessChecks {
		if !check.Check(ctx, m.nav, m.siteRoot, body) {
			continue
		}
		if check.Weak {
			// Flagged so operators can audit the heuristic's reliability.
			m.logger.Warn().Str("check", check.Name).Msg("Login accepted by last-resort heuristic")
		} else {
			m.logger.Debug().Str("check", check.Name).Msg("Login accepted")
		}
		return nil
	}
	return &Error{Reason: models.ReasonUnconfirmedLogin, Err: nil}
}

func checkNoPasswordPrompt(_ context.Context, _ interfaces.Navigator, _ string, body string) bool {
	return !passwordPromptShown(body)
}

func checkSessionCookie(ctx context.Context, nav interfaces.Navigator, _ string, _ string) bool {
	cookies, err := nav.Cookies(ctx)
	if err != nil {
		return false
	}
	for _, cookie := range cookies {
		for _, name := range SessionCookieNames {
			if cookie.Name == name {
				return true
			}
		}
	}
	return false
}

func checkAccountProbe(ctx context.Context, nav interfaces.Navigator, siteRoot string, _ string) bool {
	probe, err := nav.Navigate(ctx, common.ResolveURL(siteRoot, AccountProbePath))
	return err == nil && probe.Success() && firstMarker(probe.Body, AccountPageMarkers) != ""
}

// navigate fetches a URL and enforces the success-status contract.
func (m *Machine) navigate(ctx context.Context, url string) (*interfaces.PageResponse, error) {
	resp, err := m.nav.Navigate(ctx, url)
	if err != nil {
		return nil, &Error{Reason: models.ReasonNetworkError, Err: err}
	}
	if !resp.Success() {
		return nil, &Error{
			Reason: models.ReasonUnexpectedStatus,
			Err:    fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url),
		}
	}
	return resp, nil
}

func (m *Machine) fail(fallback models.FailReason, err error) error {
	m.state = StateFailed
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}
	if fallback == models.ReasonNone {
		fallback = models.ReasonNetworkError
	}
	return &Error{Reason: fallback, Err: err}
}

// placeField sets value on the first candidate field present in the form; if
// none are present the first candidate name is added so the submission still
// carries the value.
func placeField(form *models.FormDescriptor, candidates []string, value string) {
	for _, candidate := range candidates {
		if form.Has(candidate) {
			form.Set(candidate, value)
			return
		}
	}
	form.Set(candidates[0], value)
}

// passwordPromptShown reports whether the page is still asking for the
// secret, which disqualifies the highest-confidence success check.
func passwordPromptShown(body string) bool {
	return strings.Contains(body, "auth-password") && strings.Contains(body, "Enter your password")
}

func firstMarker(body string, markers []string) string {
	for _, marker := range markers {
		if strings.Contains(body, marker) {
			return marker
		}
	}
	return ""
}

func classifyFormError(err error) models.FailReason {
	if errors.Is(err, discovery.ErrActionMissing) {
		return models.ReasonActionMissing
	}
	return models.ReasonFormNotFound
}
