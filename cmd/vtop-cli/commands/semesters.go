package commands

import (
	"fmt"
	"os"
	"vtop-timetable/internal/scrapers/vtop"
	"vtop-timetable/internal/timetable"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(semestersCmd)
}

var semestersCmd = &cobra.Command{
	Use:   "semesters",
	Short: "Logs in and lists the semester ids the timetable command accepts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := login(cmd.Context())
		if err != nil {
			return fmt.Errorf("log in: %w", err)
		}
		fetcher := vtop.NewTimetableFetcher(session, timetable.NewParser(timetable.WithTelemetry(tel)))
		semesters, err := fetcher.Semesters(cmd.Context())
		if err != nil {
			return fmt.Errorf("list semesters: %w", err)
		}
		renderSemesters(os.Stdout, semesters)
		return nil
	},
}
