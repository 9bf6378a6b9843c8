package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"vtop-timetable/internal/components/chrono"
	"vtop-timetable/internal/timetable"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrNotFound = errors.New("snapshot not found")

var remoteSchemes = []string{"libsql://", "https://", "http://", "wss://", "ws://"}

func isRemote(path string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens a local sqlite file (or ":memory:") or a remote libsql
// database when `path` is a libsql/http(s)/ws(s) url.
func OpenDB(path, authToken string) (*sql.DB, error) {
	if isRemote(path) {
		dbUrl := path
		if authToken != "" {
			values := url.Values{}
			values.Add("authToken", authToken)
			dbUrl = path + "?" + values.Encode()
		}
		db, err := sql.Open("libsql", dbUrl)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return db, nil
	}

	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	// sqlite allows a single writer, a single connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

// Store keeps the last fetched schedule per (username, semester).
// Credentials are never written to it.
type Store struct {
	db *sql.DB
}

// Open opens the database at `path` and applies the schema.
func Open(path, authToken string) (Store, error) {
	db, err := OpenDB(path, authToken)
	if err != nil {
		return Store{}, err
	}
	return New(db)
}

func New(db *sql.DB) (Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

type Snapshot struct {
	Username  string
	Semester  string
	FetchedAt time.Time
	Schedule  timetable.Schedule
}

// Save replaces the stored schedule for the snapshot's username and
// semester.
func (s Store) Save(ctx context.Context, snapshot Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var previous int64
	err = tx.QueryRowContext(ctx,
		"select id from snapshot where username = ? and semester = ?",
		snapshot.Username, snapshot.Semester,
	).Scan(&previous)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("find previous snapshot: %w", err)
	default:
		for _, stmt := range []string{
			"delete from class_entry where snapshot_id = ?",
			"delete from snapshot_day where snapshot_id = ?",
			"delete from snapshot where id = ?",
		} {
			_, err = tx.ExecContext(ctx, stmt, previous)
			if err != nil {
				return fmt.Errorf("delete previous snapshot: %w", err)
			}
		}
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		"insert into snapshot(username, semester, fetched_at) values (?, ?, ?) returning id",
		snapshot.Username, snapshot.Semester, snapshot.FetchedAt.Unix(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	for dayPos, day := range snapshot.Schedule.Days() {
		_, err = tx.ExecContext(ctx,
			"insert into snapshot_day(snapshot_id, position, name) values (?, ?, ?)",
			id, dayPos, day.Name,
		)
		if err != nil {
			return fmt.Errorf("insert day %s: %w", day.Name, err)
		}
		for pos, entry := range day.Classes {
			_, err = tx.ExecContext(ctx,
				`insert into class_entry(
					snapshot_id, day_position, position,
					code, type, start_time, end_time, venue
				) values (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, dayPos, pos,
				entry.Code, entry.Type, entry.StartTime, entry.EndTime, entry.Venue,
			)
			if err != nil {
				return fmt.Errorf("insert class %s on %s: %w", entry.Code, day.Name, err)
			}
		}
	}

	return tx.Commit()
}

// Latest returns the stored snapshot, ErrNotFound if there is none.
func (s Store) Latest(ctx context.Context, username, semester string) (Snapshot, error) {
	var (
		id        int64
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"select id, fetched_at from snapshot where username = ? and semester = ?",
		username, semester,
	).Scan(&id, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("find snapshot: %w", err)
	}

	days, err := s.days(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Username:  username,
		Semester:  semester,
		FetchedAt: time.Unix(fetchedAt, 0).In(chrono.IST()),
		Schedule:  timetable.NewSchedule(days...),
	}, nil
}

func (s Store) days(ctx context.Context, id int64) ([]timetable.Day, error) {
	rows, err := s.db.QueryContext(ctx,
		"select name from snapshot_day where snapshot_id = ? order by position",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	var days []timetable.Day
	for rows.Next() {
		var day timetable.Day
		err = rows.Scan(&day.Name)
		if err != nil {
			rows.Close()
			return nil, err
		}
		days = append(days, day)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`select day_position, code, type, start_time, end_time, venue
		from class_entry where snapshot_id = ?
		order by day_position, position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			dayPos int
			entry  timetable.ClassEntry
		)
		err = rows.Scan(&dayPos, &entry.Code, &entry.Type, &entry.StartTime, &entry.EndTime, &entry.Venue)
		if err != nil {
			return nil, err
		}
		if dayPos < 0 || dayPos >= len(days) {
			return nil, fmt.Errorf("class %s refers to missing day %d", entry.Code, dayPos)
		}
		days[dayPos].Classes = append(days[dayPos].Classes, entry)
	}
	return days, rows.Err()
}
