package remote

import (
	"errors"
	"fmt"
)

// Reason enumerates the restriction classes the remote account API can
// signal. The set is closed: callers branch on these values instead of
// matching error strings.
type Reason string

const (
	ReasonBadCredentials    Reason = "bad_credentials"
	ReasonChallengeRequired Reason = "challenge_required"
	ReasonRecaptcha         Reason = "recaptcha_required"
	ReasonFeedbackRequired  Reason = "feedback_required"
	ReasonRateLimited       Reason = "rate_limited"
	ReasonLoginRequired     Reason = "login_required"
	ReasonProxyBlocked      Reason = "proxy_blocked"
)

// RestrictionError reports a condition signalled by the remote API that
// cannot be resolved locally (challenge, throttle, proxy block, ...).
type RestrictionError struct {
	Reason  Reason
	Message string
}

func (e *RestrictionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote restriction: %s", e.Reason)
	}
	return fmt.Sprintf("remote restriction: %s: %s", e.Reason, e.Message)
}

// AsRestriction unwraps err into a RestrictionError if one is present.
func AsRestriction(err error) (*RestrictionError, bool) {
	var restriction *RestrictionError
	if errors.As(err, &restriction) {
		return restriction, true
	}
	return nil, false
}

// reasonFromCode maps the API's error codes onto the closed Reason set.
// Unknown codes stay unmapped so they surface as generic failures.
func reasonFromCode(code string) (Reason, bool) {
	switch Reason(code) {
	case ReasonBadCredentials, ReasonChallengeRequired, ReasonRecaptcha,
		ReasonFeedbackRequired, ReasonRateLimited, ReasonLoginRequired,
		ReasonProxyBlocked:
		return Reason(code), true
	default:
		return "", false
	}
}
