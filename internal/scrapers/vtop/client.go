package vtop

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
	"vtop-timetable/internal/components/assert"
	"vtop-timetable/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://vtop.vitap.ac.in"

const userAgent = "Mozilla/5.0"

const (
	pathOpenPage         = "/vtop/open/page"
	pathPrelogin         = "/vtop/prelogin/setup"
	pathLogin            = "/vtop/login"
	pathContent          = "/vtop/content"
	pathTimetableView    = "/vtop/academics/common/StudentTimeTable"
	pathProcessTimetable = "/vtop/processViewTimeTable"
)

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout is applied per request, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond paces requests client side, defaults to 2. A negative
	// value disables pacing.
	RequestsPerSecond float64
	// CloudflareBypass swaps the transport for one that mimics a browser's
	// TLS and header profile.
	CloudflareBypass bool
	// Output receives full dumps of every HTTP exchange, it can be nil.
	Output telemetry.MessageOutput
}

// Transport is a cookie bearing HTTP client for one portal origin. It holds
// no login state of its own.
type Transport struct {
	BaseUrl *url.URL
	Http    *resty.Client

	jar *cookiejar.Jar
	tel telemetry.API
}

func NewTransport(opts ClientOptions, tel telemetry.API) (*Transport, error) {
	assert.NotNil(tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsedBaseUrl.Hostname() == "" {
		return nil, fmt.Errorf("base url %q has no host", opts.BaseUrl)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.RequestsPerSecond > 0 {
		// max burst >= rate just means that no requests will be dropped
		burst := int(math.Max(1, math.Ceil(opts.RequestsPerSecond)))
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Transport{
		BaseUrl: parsedBaseUrl,
		Http:    httpClient,
		jar:     jar,
		tel:     tel,
	}, nil
}

func (t *Transport) check(op string, res *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if res.StatusCode() >= 400 {
		return nil, &TransportError{Op: op, Status: res.StatusCode()}
	}
	return res.Body(), nil
}

// Get fetches a portal page, `op` names the step for errors.
func (t *Transport) Get(ctx context.Context, op, path string) ([]byte, error) {
	res, err := t.Http.R().
		SetContext(ctx).
		Get(path)
	return t.check(op, res, err)
}

// PostForm posts an url encoded form to a portal page.
func (t *Transport) PostForm(ctx context.Context, op, path string, form map[string]string) ([]byte, error) {
	res, err := t.Http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(path)
	return t.check(op, res, err)
}

// Cookies returns the cookies the jar would send to the portal's origin.
func (t *Transport) Cookies() []*http.Cookie {
	return t.jar.Cookies(t.BaseUrl)
}

func parseDocument(page string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vtop: parse %s: %w", page, err)
	}
	return doc, nil
}

// csrfToken reads the hidden _csrf field, an empty string means absent.
func csrfToken(doc *goquery.Document) string {
	return doc.Find("input[name=_csrf]").First().AttrOr("value", "")
}
