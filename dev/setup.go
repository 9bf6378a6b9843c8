package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	devenv "vtop-timetable/dev/env"
	"vtop-timetable/internal/store"
)

const vtopConfigTemplate = `{
    // credentials for the live portal tests, never commit this file
    base_url: "https://vtop.vitap.ac.in",
    username: "",
    password: "",
    // leave empty to use the first semester the portal lists
    semester: "",
    model_path: "<dev_state>/captcha_model.json",
}
`

func CreateSnapshotDB() error {
	path, err := devenv.ResolvePath("<dev_state>/snapshots.db")
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	db, err := store.Open(path, "")
	if err != nil {
		return err
	}
	// an empty lookup checks the schema was applied
	_, err = db.Latest(context.Background(), "", "")
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		db.Close()
		return err
	}
	return db.Close()
}

func WriteVtopTestConfig() error {
	path, err := devenv.GetStateFilePath("vtop_config.json5")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("live test config already exists at", path)
		return nil
	}
	return os.WriteFile(path, []byte(vtopConfigTemplate), 0600)
}

func PrintConfigLocations() {
	slog.Info("the live portal tests are skipped until dev/.state/vtop_config.json5 has credentials and dev/.state/captcha_model.json exists, run `go test -v ./internal/scrapers/vtop` to check.")
}
