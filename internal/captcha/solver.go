package captcha

import (
	"errors"
	"vtop-timetable/internal/components/telemetry"
)

const (
	report_solver_solve = "solver.solve"
)

var ErrModelUnavailable = errors.New("captcha model unavailable")

// Solver wraps an optional model. A Solver without a model is valid, it just
// never produces answers so that callers can fall back to asking a human.
type Solver struct {
	model *Model
	tel   telemetry.API
}

func NewSolver(model *Model, tel telemetry.API) Solver {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return Solver{
		model: model,
		tel:   telemetry.NewScopedAPI("captcha", tel),
	}
}

// NewSolverFromFile loads the model at path, the load error is returned
// alongside a usable (but unavailable) solver.
func NewSolverFromFile(path string, tel telemetry.API) (Solver, error) {
	model, err := LoadModel(path)
	if err != nil {
		return NewSolver(nil, tel), err
	}
	return NewSolver(model, tel), nil
}

func (s Solver) Available() bool {
	return s.model != nil
}

// Solve classifies an encoded captcha image, ok is false when no model is
// loaded. A decode failure is returned as a *DecodeError.
func (s Solver) Solve(data []byte) (guess string, ok bool, err error) {
	if s.model == nil {
		s.tel.ReportDebug(report_solver_solve, ErrModelUnavailable)
		return "", false, nil
	}
	guess, err = SolveBytes(data, s.model)
	if err != nil {
		s.tel.ReportWarning(report_solver_solve, err)
		return "", true, err
	}
	return guess, true, nil
}
