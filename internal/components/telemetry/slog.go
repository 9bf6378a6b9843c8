package telemetry

import (
	"log/slog"
	"os"
	"strconv"
)

// InitSlog installs a text handler on the default slog logger, debug
// reports are only emitted when verbose is set.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SlogAPI writes reports to the default slog logger. Report params have no
// names, so they are logged as param0, param1, ...
type SlogAPI struct{}

func slogArgs(id string, params []any) []any {
	args := make([]any, 0, 2+2*len(params))
	if id != "" {
		args = append(args, "id", id)
	}
	for i, p := range params {
		if err, ok := p.(error); ok {
			p = err.Error()
		}
		args = append(args, "param"+strconv.Itoa(i), p)
	}
	return args
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken", slogArgs(id, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", slogArgs(id, params)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, slogArgs("", params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}
