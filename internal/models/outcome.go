package models

// CycleStatus is the terminal classification of one import cycle.
type CycleStatus string

const (
	CycleAuthFailed  CycleStatus = "auth_failed"
	CycleFetchFailed CycleStatus = "fetch_failed"
	CycleParseFailed CycleStatus = "parse_failed"
	CycleSuccess     CycleStatus = "success"
)

// FailReason identifies why the authentication machine or extraction chain
// gave up. Reasons are stable strings so they can be logged and asserted on.
type FailReason string

const (
	ReasonNone               FailReason = ""
	ReasonNetworkError       FailReason = "network_error"
	ReasonUnexpectedStatus   FailReason = "unexpected_status"
	ReasonLoginLinkNotFound  FailReason = "login_link_not_found"
	ReasonFormNotFound       FailReason = "form_not_found"
	ReasonActionMissing      FailReason = "action_missing"
	ReasonBadCredentials     FailReason = "bad_credentials"
	ReasonMfaRequiredNoSeed  FailReason = "mfa_required_no_seed"
	ReasonMfaFormNotFound    FailReason = "mfa_form_not_found"
	ReasonMfaRejected        FailReason = "mfa_rejected"
	ReasonTotpGeneration     FailReason = "totp_generation_error"
	ReasonUnconfirmedLogin   FailReason = "unconfirmed_login"
	ReasonNoStrategyMatched  FailReason = "no_strategy_matched"
	ReasonSessionRejected    FailReason = "session_rejected"
)

// ClearStatus summarizes the best-effort deletion pass.
type ClearStatus struct {
	Attempted int `json:"attempted"`
	Deleted   int `json:"deleted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// CycleOutcome is produced exactly once per cycle and handed to the caller.
// Items, DeliveryStatus and Clear are only meaningful on CycleSuccess.
type CycleOutcome struct {
	CycleID        string             `json:"cycle_id"`
	Status         CycleStatus        `json:"status"`
	Reason         FailReason         `json:"reason,omitempty"`
	Items          []ShoppingListItem `json:"items,omitempty"`
	DeliveryStatus int                `json:"delivery_status,omitempty"`
	Clear          *ClearStatus       `json:"clear,omitempty"`
}

// Succeeded reports whether the cycle reached a successful terminal state.
func (o CycleOutcome) Succeeded() bool {
	return o.Status == CycleSuccess
}
