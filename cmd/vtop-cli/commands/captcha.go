package commands

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"vtop-timetable/internal/captcha"

	"github.com/spf13/cobra"
)

var captchaModel *string

func init() {
	captchaModel = captchaSolveCmd.Flags().String("model", "", "The captcha model to use, defaults to the config's model_path.")
	captchaCmd.AddCommand(captchaSolveCmd)
	rootCmd.AddCommand(captchaCmd)
}

// readCaptchaFile accepts a raw image, or a text file holding base64 (with
// or without a data: prefix) as copied out of the login page.
func readCaptchaFile(contents []byte) []byte {
	text := bytes.TrimSpace(contents)
	if _, payload, found := bytes.Cut(text, []byte(",")); found && bytes.HasPrefix(text, []byte("data:")) {
		text = payload
	}
	decoded, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return contents
	}
	return decoded
}

var captchaCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Captcha classifier utilities.",
}

var captchaSolveCmd = &cobra.Command{
	Use:   "solve <image-file> [--model <path>]",
	Short: "Classifies a captcha image with the configured model.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modelPath := *captchaModel
		if modelPath == "" {
			modelPath = cfg.ModelPath
		}
		if modelPath == "" {
			return errors.New("no captcha model, pass --model or set 'model_path' in the config")
		}
		solver, err := captcha.NewSolverFromFile(modelPath, tel)
		if err != nil {
			return err
		}

		contents, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read captcha: %w", err)
		}
		guess, _, err := solver.Solve(readCaptchaFile(contents))
		if err != nil {
			return fmt.Errorf("solve captcha: %w", err)
		}
		fmt.Println(guess)
		return nil
	},
}
