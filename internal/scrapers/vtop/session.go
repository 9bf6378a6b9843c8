package vtop

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"vtop-timetable/internal/captcha"
	"vtop-timetable/internal/components/assert"
	"vtop-timetable/internal/components/chrono"
	"vtop-timetable/internal/components/telemetry"
)

const (
	report_session_bootstrap          = "session.bootstrap"
	report_session_submit_prelogin    = "session.submit-prelogin"
	report_session_fetch_captcha      = "session.fetch-captcha"
	report_session_submit_credentials = "session.submit-credentials"
	report_session_finalize           = "session.finalize"
)

// State is a step of the portal's login handshake, each step only accepts
// calls from the state before it.
type State int

const (
	StateInit State = iota
	StateCsrfBootstrapped
	StatePreloginSubmitted
	StateCaptchaReady
	StateCredentialsSubmitted
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCsrfBootstrapped:
		return "CSRF_BOOTSTRAPPED"
	case StatePreloginSubmitted:
		return "PRELOGIN_SUBMITTED"
	case StateCaptchaReady:
		return "CAPTCHA_READY"
	case StateCredentialsSubmitted:
		return "CREDENTIALS_SUBMITTED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// CaptchaChallenge is one captcha fetched from the login page. CSRFToken is
// empty when the page carried no token.
type CaptchaChallenge struct {
	Image     []byte
	CSRFToken string
}

type Credentials struct {
	Username string
	Password string
}

// SolveFunc turns a challenge into a captcha guess, either with the
// classifier or by asking a human.
type SolveFunc func(ctx context.Context, challenge CaptchaChallenge) (string, error)

// SolverFunc adapts a captcha.Solver, a solver without a model falls back to
// `manual` (if given).
func SolverFunc(solver captcha.Solver, manual SolveFunc) SolveFunc {
	return func(ctx context.Context, challenge CaptchaChallenge) (string, error) {
		guess, ok, err := solver.Solve(challenge.Image)
		if err != nil {
			return "", err
		}
		if ok {
			return guess, nil
		}
		if manual == nil {
			return "", captcha.ErrModelUnavailable
		}
		return manual(ctx, challenge)
	}
}

// Session drives the login handshake and owns the rotating CSRF token. It
// must not be used from more than one goroutine at a time.
type Session struct {
	transport *Transport
	clock     chrono.TimeAPI
	tel       telemetry.API

	state    State
	csrf     string
	username string
}

func NewSession(opts ClientOptions, clock chrono.TimeAPI, tel telemetry.API) (*Session, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("vtop", tel)
	transport, err := NewTransport(opts, tel)
	if err != nil {
		return nil, err
	}
	return &Session{
		transport: transport,
		clock:     clock,
		tel:       tel,
		state:     StateInit,
	}, nil
}

func (s *Session) State() State {
	return s.state
}

// CSRFToken is the token that will be sent with the next form post.
func (s *Session) CSRFToken() string {
	return s.csrf
}

func (s *Session) Cookies() []*http.Cookie {
	return s.transport.Cookies()
}

// Username is the identity the session logged in as, it is sent as the
// portal's authorizedID.
func (s *Session) Username() string {
	return s.username
}

func (s *Session) expect(op string, allowed ...State) error {
	for _, state := range allowed {
		if s.state == state {
			return nil
		}
	}
	return fmt.Errorf("%s in state %s: %w", op, s.state, ErrNotAuthenticated)
}

// Bootstrap reads the first CSRF token off the portal's open page.
func (s *Session) Bootstrap(ctx context.Context) error {
	err := s.expect("bootstrap", StateInit)
	if err != nil {
		return err
	}

	body, err := s.transport.Get(ctx, "bootstrap", pathOpenPage)
	if err != nil {
		s.tel.ReportWarning(report_session_bootstrap, err)
		return err
	}
	doc, err := parseDocument(pathOpenPage, body)
	if err != nil {
		s.tel.ReportBroken(report_session_bootstrap, err)
		return err
	}
	token := csrfToken(doc)
	if token == "" {
		err := &ProtocolError{Page: pathOpenPage, Element: "input[name=_csrf]"}
		s.tel.ReportBroken(report_session_bootstrap, err)
		return err
	}

	s.csrf = token
	s.state = StateCsrfBootstrapped
	return nil
}

// SubmitPrelogin primes the portal's server side session, the response has
// nothing of use.
func (s *Session) SubmitPrelogin(ctx context.Context) error {
	err := s.expect("submit prelogin", StateCsrfBootstrapped)
	if err != nil {
		return err
	}

	_, err = s.transport.PostForm(ctx, "submit prelogin", pathPrelogin, map[string]string{
		"_csrf": s.csrf,
		"flag":  "VTOP",
	})
	if err != nil {
		s.tel.ReportWarning(report_session_submit_prelogin, err)
		return err
	}

	s.state = StatePreloginSubmitted
	return nil
}

// FetchCaptcha loads the login page for a new captcha and token. It can be
// called again to re-roll the captcha any time after prelogin, including
// after a rejected login.
func (s *Session) FetchCaptcha(ctx context.Context) (CaptchaChallenge, error) {
	err := s.expect(
		"fetch captcha",
		StatePreloginSubmitted,
		StateCaptchaReady,
		StateCredentialsSubmitted,
	)
	if err != nil {
		return CaptchaChallenge{}, err
	}

	body, err := s.transport.Get(ctx, "fetch captcha", pathLogin)
	if err != nil {
		s.tel.ReportWarning(report_session_fetch_captcha, err)
		return CaptchaChallenge{}, err
	}
	doc, err := parseDocument(pathLogin, body)
	if err != nil {
		s.tel.ReportBroken(report_session_fetch_captcha, err)
		return CaptchaChallenge{}, err
	}

	src, ok := doc.Find(`img[src^="data:image"]`).First().Attr("src")
	if !ok {
		err := &ProtocolError{Page: pathLogin, Element: "img[src^=data:image]"}
		s.tel.ReportBroken(report_session_fetch_captcha, err)
		return CaptchaChallenge{}, err
	}
	image, err := decodeDataUri(src)
	if err != nil {
		s.tel.ReportWarning(report_session_fetch_captcha, err)
		return CaptchaChallenge{}, err
	}

	challenge := CaptchaChallenge{
		Image:     image,
		CSRFToken: csrfToken(doc),
	}
	if challenge.CSRFToken != "" {
		s.csrf = challenge.CSRFToken
	}
	s.state = StateCaptchaReady
	return challenge, nil
}

// decodeDataUri decodes the base64 payload after the first comma, input
// without a comma is treated as bare base64.
func decodeDataUri(src string) ([]byte, error) {
	_, payload, found := strings.Cut(src, ",")
	if !found {
		payload = src
	}
	payload = strings.Join(strings.Fields(payload), "")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &captcha.DecodeError{Err: fmt.Errorf("base64 payload: %w", err)}
	}
	return data, nil
}

// SubmitCredentials posts the login form. The portal answers the same way
// whether the login worked or not, Finalize tells the two apart.
func (s *Session) SubmitCredentials(ctx context.Context, username, password, captchaGuess string) error {
	err := s.expect("submit credentials", StateCaptchaReady)
	if err != nil {
		return err
	}

	s.tel.ReportDebug(report_session_submit_credentials, username)
	_, err = s.transport.PostForm(ctx, "submit credentials", pathLogin, map[string]string{
		"_csrf":      s.csrf,
		"username":   username,
		"password":   password,
		"captchaStr": captchaGuess,
	})
	if err != nil {
		s.tel.ReportWarning(report_session_submit_credentials, err)
		return err
	}

	s.username = username
	s.state = StateCredentialsSubmitted
	return nil
}

// Finalize loads the post-login landing page and takes its CSRF token. A
// page without a token, or one that still shows the login form, means the
// login was rejected: the session goes back to PRELOGIN_SUBMITTED and
// ErrLoginFailed is returned so a new captcha can be fetched.
func (s *Session) Finalize(ctx context.Context) error {
	err := s.expect("finalize", StateCredentialsSubmitted)
	if err != nil {
		return err
	}

	body, err := s.transport.Get(ctx, "finalize", pathContent)
	if err != nil {
		s.tel.ReportWarning(report_session_finalize, err)
		return err
	}
	doc, err := parseDocument(pathContent, body)
	if err != nil {
		s.tel.ReportBroken(report_session_finalize, err)
		return err
	}

	token := csrfToken(doc)
	if token == "" || doc.Find("input[name=captchaStr]").Length() > 0 {
		s.state = StatePreloginSubmitted
		s.tel.ReportWarning(report_session_finalize, ErrLoginFailed)
		return fmt.Errorf("no post-login token for %s: %w", s.username, ErrLoginFailed)
	}

	s.csrf = token
	s.state = StateAuthenticated
	return nil
}

// Login runs whatever remains of the handshake. On a rejected captcha the
// session is left ready for RetryCaptcha.
func (s *Session) Login(ctx context.Context, creds Credentials, solve SolveFunc) error {
	if s.state == StateInit {
		err := s.Bootstrap(ctx)
		if err != nil {
			return err
		}
	}
	if s.state == StateCsrfBootstrapped {
		err := s.SubmitPrelogin(ctx)
		if err != nil {
			return err
		}
	}
	return s.RetryCaptcha(ctx, creds, solve)
}

// RetryCaptcha fetches a fresh captcha and submits the credentials with it,
// without repeating bootstrap or prelogin.
func (s *Session) RetryCaptcha(ctx context.Context, creds Credentials, solve SolveFunc) error {
	challenge, err := s.FetchCaptcha(ctx)
	if err != nil {
		return err
	}
	guess, err := solve(ctx, challenge)
	if err != nil {
		return fmt.Errorf("solve captcha: %w", err)
	}
	err = s.SubmitCredentials(ctx, creds.Username, creds.Password, guess)
	if err != nil {
		return err
	}
	return s.Finalize(ctx)
}

// Retryable reports whether a Login or RetryCaptcha error can be followed
// by another RetryCaptcha.
func Retryable(err error) bool {
	var decodeErr *captcha.DecodeError
	return errors.Is(err, ErrLoginFailed) || errors.As(err, &decodeErr)
}
