package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"vtop-timetable/internal/components/chrono"
	"vtop-timetable/internal/scrapers/vtop"
	"vtop-timetable/internal/store"
	"vtop-timetable/internal/timetable"

	"github.com/spf13/cobra"
)

var (
	timetableSemester *string
	timetableDb       *string
	timetableIcs      *string
	timetableJson     *bool
)

func init() {
	timetableSemester = timetableCmd.Flags().String("semester", "", "The semester id or name to fetch, defaults to the config's semester.")
	timetableDb = timetableCmd.Flags().String("db", "", "Save the timetable to this snapshot database (sqlite path or libsql url).")
	timetableIcs = timetableCmd.Flags().String("ics", "", "Write the timetable as an iCalendar file.")
	timetableJson = timetableCmd.Flags().Bool("json", false, "Print the timetable as JSON instead of tables.")
	rootCmd.AddCommand(timetableCmd)
}

// weekStart is the Monday of the week containing `now`.
func weekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	day := now.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
}

var timetableCmd = &cobra.Command{
	Use:   "timetable [--semester <id>] [--db <path>] [--ics <file>] [--json]",
	Short: "Logs in and prints your timetable for a semester.",
	RunE: func(cmd *cobra.Command, args []string) error {
		semester := *timetableSemester
		if semester == "" {
			semester = cfg.Semester
		}
		if semester == "" {
			return errors.New("no semester given, pass --semester or set 'semester' in the config (see the semesters command)")
		}
		dbPath := *timetableDb
		if dbPath == "" {
			dbPath = cfg.Db
		}

		session, err := login(cmd.Context())
		if err != nil {
			return fmt.Errorf("log in: %w", err)
		}
		fetcher := vtop.NewTimetableFetcher(session, timetable.NewParser(timetable.WithTelemetry(tel)))
		if strings.ContainsRune(semester, ' ') {
			semesters, err := fetcher.Semesters(cmd.Context())
			if err != nil {
				return fmt.Errorf("list semesters: %w", err)
			}
			match, ok := timetable.MatchSemester(semesters, semester)
			if !ok {
				return fmt.Errorf("no semester named like %q", semester)
			}
			slog.Info("matched semester", "query", semester, "id", match.ID, "name", match.Name)
			semester = match.ID
		}
		schedule, err := fetcher.FetchTimetable(cmd.Context(), semester)
		if err != nil {
			return fmt.Errorf("fetch timetable: %w", err)
		}
		now := chrono.NewStandardTime().Now()

		if *timetableJson {
			encoded, err := json.MarshalIndent(schedule, "", "  ")
			if err != nil {
				return fmt.Errorf("encode timetable: %w", err)
			}
			fmt.Println(string(encoded))
		} else {
			renderSchedule(os.Stdout, schedule)
		}

		if *timetableIcs != "" {
			result := timetable.ToICal(schedule, weekStart(now), chrono.IST())
			err = os.WriteFile(*timetableIcs, []byte(result.Calendar), 0644)
			if err != nil {
				return fmt.Errorf("write calendar: %w", err)
			}
			slog.Info("wrote calendar", "path", *timetableIcs, "events", result.Events, "skipped", result.Skipped)
		}

		if dbPath != "" {
			snapshots, err := store.Open(dbPath, cfg.DbAuthToken)
			if err != nil {
				return fmt.Errorf("open snapshot db: %w", err)
			}
			defer snapshots.Close()
			err = snapshots.Save(cmd.Context(), store.Snapshot{
				Username:  session.Username(),
				Semester:  semester,
				FetchedAt: now,
				Schedule:  schedule,
			})
			if err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			slog.Info("saved snapshot", "db", dbPath)
		}
		return nil
	},
}
