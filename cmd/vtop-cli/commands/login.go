package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"vtop-timetable/internal/captcha"
	"vtop-timetable/internal/components/chrono"
	"vtop-timetable/internal/scrapers/vtop"
)

func newSolver() captcha.Solver {
	if cfg.ModelPath == "" {
		slog.Info("no captcha model configured, captchas will be entered by hand")
		return captcha.NewSolver(nil, tel)
	}
	solver, err := captcha.NewSolverFromFile(cfg.ModelPath, tel)
	if err != nil {
		slog.Warn("captcha model unavailable, captchas will be entered by hand", "err", err)
	}
	return solver
}

// promptCaptcha saves the captcha image to the temp dir and reads the answer
// from stdin.
func promptCaptcha(ctx context.Context, challenge vtop.CaptchaChallenge) (string, error) {
	path := filepath.Join(os.TempDir(), "vtop-captcha.png")
	err := os.WriteFile(path, challenge.Image, 0600)
	if err != nil {
		return "", fmt.Errorf("write captcha image: %w", err)
	}

	fmt.Fprintf(os.Stderr, "captcha saved to %s, enter it: ", path)
	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer <- strings.ToUpper(strings.TrimSpace(line))
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case guess := <-answer:
		if guess == "" {
			return "", errors.New("no captcha entered")
		}
		return guess, nil
	}
}

// login runs the handshake, retrying rejected captchas up to the configured
// number of attempts.
func login(ctx context.Context) (*vtop.Session, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("username and password must be set in %s", *configPath)
	}

	session, err := vtop.NewSession(cfg.clientOptions(output), chrono.NewStandardTime(), tel)
	if err != nil {
		return nil, err
	}

	solve := vtop.SolverFunc(newSolver(), promptCaptcha)
	creds := vtop.Credentials{Username: cfg.Username, Password: cfg.Password}

	err = session.Login(ctx, creds, solve)
	for attempt := 1; attempt < cfg.CaptchaAttempts && vtop.Retryable(err); attempt++ {
		slog.Info("captcha rejected, retrying", "attempt", attempt+1, "err", err)
		err = session.RetryCaptcha(ctx, creds, solve)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("logged in", "username", cfg.Username)
	return session, nil
}
