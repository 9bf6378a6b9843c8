package vtop

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
	"vtop-timetable/internal/components/chrono"
	"vtop-timetable/internal/components/telemetry"
	"vtop-timetable/internal/timetable"

	"github.com/stretchr/testify/require"
)

const (
	testUsername  = "23BCE7001"
	testPassword  = "hunter2"
	testAnswer    = "K9X2MP"
	testSemester  = "AP2024252"
	openToken     = "open-csrf"
	contentToken  = "content-csrf"
	sessionCookie = "JSESSIONID"
)

var testCaptcha = []byte("\x89PNG not really an image")

var testClock = chrono.FixedTime{At: time.Date(2024, time.July, 5, 9, 30, 15, 0, chrono.IST())}

// fakePortal replays the portal's login and timetable endpoints and rejects
// any request that skips a step, carries a stale token or lost its cookie.
type fakePortal struct {
	t *testing.T

	mu            sync.Mutex
	hits          map[string]int
	loginTokens   int
	preloginDone  bool
	loggedIn      bool
	viewPrimed    bool
	omitOpenToken bool
	brokenCaptcha bool
	failOpenPage  int
	hang          bool

	server *httptest.Server
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{t: t, hits: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /vtop/open/page", p.openPage)
	mux.HandleFunc("POST /vtop/prelogin/setup", p.prelogin)
	mux.HandleFunc("GET /vtop/login", p.loginPage)
	mux.HandleFunc("POST /vtop/login", p.submitLogin)
	mux.HandleFunc("GET /vtop/content", p.content)
	mux.HandleFunc("POST /vtop/academics/common/StudentTimeTable", p.timetableView)
	mux.HandleFunc("POST /vtop/processViewTimeTable", p.processTimetable)

	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.hits[r.Method+" "+r.URL.Path]++
		if r.Header.Get("user-agent") != userAgent {
			http.Error(w, "bad user agent", http.StatusForbidden)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) session() *Session {
	session, err := NewSession(ClientOptions{
		BaseUrl:           p.server.URL,
		Timeout:           5 * time.Second,
		RequestsPerSecond: -1,
	}, testClock, telemetry.SlogAPI{})
	require.NoError(p.t, err)
	return session
}

func (p *fakePortal) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[key]
}

func (p *fakePortal) set(f func(p *fakePortal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(p)
}

func (p *fakePortal) loginToken() string {
	return fmt.Sprintf("login-csrf-%d", p.loginTokens)
}

func (p *fakePortal) requireCookie(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value != "s3ss10n" {
		http.Error(w, "no session", http.StatusUnauthorized)
		return false
	}
	return true
}

func (p *fakePortal) requireForm(w http.ResponseWriter, r *http.Request, expected map[string]string) bool {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	for key, value := range expected {
		if r.PostForm.Get(key) != value {
			http.Error(w, fmt.Sprintf("bad %s: %q", key, r.PostForm.Get(key)), http.StatusForbidden)
			return false
		}
	}
	return true
}

func (p *fakePortal) openPage(w http.ResponseWriter, r *http.Request) {
	if p.failOpenPage > 0 {
		p.failOpenPage--
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
		return
	}
	if p.hang {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "s3ss10n", Path: "/"})
	token := fmt.Sprintf(`<input type="hidden" name="_csrf" value="%s"/>`, openToken)
	if p.omitOpenToken {
		token = ""
	}
	fmt.Fprintf(w, `<html><body><form id="stdForm">%s<button>Student</button></form></body></html>`, token)
}

func (p *fakePortal) prelogin(w http.ResponseWriter, r *http.Request) {
	if !p.requireCookie(w, r) || !p.requireForm(w, r, map[string]string{"_csrf": openToken, "flag": "VTOP"}) {
		return
	}
	p.preloginDone = true
	fmt.Fprint(w, "<html></html>")
}

func (p *fakePortal) loginPage(w http.ResponseWriter, r *http.Request) {
	if !p.requireCookie(w, r) {
		return
	}
	if !p.preloginDone {
		http.Error(w, "prelogin first", http.StatusForbidden)
		return
	}
	p.loginTokens++
	payload := base64.StdEncoding.EncodeToString(testCaptcha)
	if p.brokenCaptcha {
		payload = "%%%not-base64%%%"
	}
	fmt.Fprintf(w, `<html><body><form id="vtopLoginForm">
		<input type="hidden" name="_csrf" value="%s"/>
		<input name="username"/><input name="password" type="password"/>
		<img class="form-control" src="data:image/jpeg;base64,%s"/>
		<input name="captchaStr"/>
	</form></body></html>`, p.loginToken(), payload)
}

func (p *fakePortal) submitLogin(w http.ResponseWriter, r *http.Request) {
	if !p.requireCookie(w, r) || !p.requireForm(w, r, map[string]string{"_csrf": p.loginToken()}) {
		return
	}
	p.loggedIn = r.PostForm.Get("username") == testUsername &&
		r.PostForm.Get("password") == testPassword &&
		r.PostForm.Get("captchaStr") == testAnswer
	fmt.Fprint(w, "<html><body>redirecting</body></html>")
}

func (p *fakePortal) content(w http.ResponseWriter, r *http.Request) {
	if !p.requireCookie(w, r) {
		return
	}
	if !p.loggedIn {
		fmt.Fprint(w, `<html><body><p>Invalid Captcha</p></body></html>`)
		return
	}
	fmt.Fprintf(w, `<html><body><form><input type="hidden" name="_csrf" value="%s"/></form></body></html>`, contentToken)
}

func (p *fakePortal) timetableView(w http.ResponseWriter, r *http.Request) {
	ok := p.requireCookie(w, r) && p.requireForm(w, r, map[string]string{
		"verifyMenu":   "true",
		"authorizedID": testUsername,
		"_csrf":        contentToken,
		"nocache":      strconv.FormatInt(testClock.At.UnixMilli(), 10),
	})
	if !ok {
		return
	}
	p.viewPrimed = true
	fmt.Fprint(w, `<html><body><select id="semesterSubId" name="semesterSubId">
		<option value="">-- Choose Semester --</option>
		<option value="AP2024252">Fall Semester 2024-25</option>
		<option value="AP2023244">Winter Semester 2023-24</option>
	</select></body></html>`)
}

func (p *fakePortal) processTimetable(w http.ResponseWriter, r *http.Request) {
	ok := p.requireCookie(w, r) && p.requireForm(w, r, map[string]string{
		"_csrf":         contentToken,
		"semesterSubId": testSemester,
		"authorizedID":  testUsername,
		"x":             "Fri, 5 Jul 2024 09:30:15 +0530",
	})
	if !ok {
		return
	}
	if !p.viewPrimed {
		http.Error(w, "view not initialized", http.StatusForbidden)
		return
	}
	fmt.Fprint(w, `<html><body><table id="timeTableStyle">
		<tr><td>THEORY</td><td>Start</td><td>08:00</td><td>08:50</td></tr>
		<tr><td>End</td><td>08:50</td><td>09:40</td></tr>
		<tr><td>LAB</td><td>Start</td><td>08:00</td><td>08:51</td></tr>
		<tr><td>End</td><td>08:50</td><td>09:40</td></tr>
		<tr><td>MON</td><td>THEORY</td><td>MATH101-CS1 - MATH101 - Dr.X - AB1-101</td><td>-</td></tr>
		<tr><td>LAB</td><td>-</td><td>L3-CSE1001-ELA-AB1-305-ALL</td></tr>
	</table></body></html>`)
}

var expectedMonday = []timetable.ClassEntry{
	{Code: "MATH101", Type: timetable.KindTheory, StartTime: "08:00", EndTime: "08:50", Venue: "AB1-101"},
	{Code: "CSE1001", Type: timetable.KindLab, StartTime: "08:51", EndTime: "09:40", Venue: "AB1-305"},
}
