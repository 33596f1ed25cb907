package failover

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

// Kind is the failure class of a single credential attempt.
type Kind int

const (
	// KindQuota covers rate limits, exhausted quotas and transient provider
	// overload. The engine rotates to the next credential.
	KindQuota = Kind(iota + 1)
	// KindClient is a non-quota 4xx. The request itself is wrong.
	KindClient
	// KindUpstream is a non-transient 5xx from the provider.
	KindUpstream
	// KindTransport is a failure without any HTTP status.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindQuota:
		return "quota"
	case KindClient:
		return "client"
	case KindUpstream:
		return "upstream"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// StatusError is the provider-neutral error an outbound caller returns when the
// provider answered with a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

var quotaPattern = regexp.MustCompile(`(?i)(quota|rate[ _-]?limit|resource[ _-]?exhausted|too many requests)`)

// Failure is a classified attempt failure.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s failure (%d): %s", f.Kind, f.Status, f.Message)
}

// Classify maps an attempt error onto a failure class.
func Classify(err error) Failure {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		if quotaPattern.MatchString(err.Error()) {
			return Failure{Kind: KindQuota, Status: http.StatusTooManyRequests, Message: err.Error()}
		}
		return Failure{Kind: KindTransport, Status: http.StatusInternalServerError, Message: err.Error()}
	}

	code, msg := statusErr.StatusCode, statusErr.Message
	if msg == "" {
		msg = http.StatusText(code)
	}
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusServiceUnavailable:
		return Failure{Kind: KindQuota, Status: code, Message: msg}
	case quotaPattern.MatchString(msg):
		return Failure{Kind: KindQuota, Status: code, Message: msg}
	case code >= 400 && code < 500:
		return Failure{Kind: KindClient, Status: code, Message: msg}
	case code >= 500:
		return Failure{Kind: KindUpstream, Status: http.StatusInternalServerError, Message: msg}
	default:
		return Failure{Kind: KindTransport, Status: http.StatusInternalServerError, Message: msg}
	}
}
