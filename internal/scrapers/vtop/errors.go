package vtop

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned (wrapped with the attempted operation and
// the session's state) for any call made out of login order.
var ErrNotAuthenticated = errors.New("vtop: not authenticated")

// ErrLoginFailed means the portal did not hand out a post-login token, which
// is how it reports bad credentials or a wrong captcha.
var ErrLoginFailed = errors.New("vtop: login failed")

// ProtocolError is an expected element missing from a portal page, usually a
// sign that the portal's markup changed.
type ProtocolError struct {
	Page    string
	Element string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("vtop: could not find %s on %s", e.Element, e.Page)
}

// TransportError wraps network failures, timeouts and error statuses. The
// session's state is left untouched so the same step can be retried.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("vtop: %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("vtop: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
