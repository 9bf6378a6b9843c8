package telemetry

// API is where components report what happened to them. Implementations
// fan out to slog and otel, tests swap in a recorder.
//
// Ids name the component and method, `client.fetch-captcha` rather than the
// failing detail: lowercase, underscores inside component names, dashes inside
// method names. Scoping by package is left to ScopedAPI.
type API interface {
	// ReportBroken reports a failure someone has to look at, usually the
	// portal changing its markup or refusing a request.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something odd that did not stop the operation.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount reports a gauge reading, e.g. the entries one parse produced.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id and debug message with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return s.namespace + ": " + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
