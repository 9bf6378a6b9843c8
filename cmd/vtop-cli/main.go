package main

import (
	"os"
	"vtop-timetable/cmd/vtop-cli/commands"
	"vtop-timetable/pkg/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext()
	err := commands.ExecuteContext(ctx, os.Args[1:])
	stop()
	if err != nil {
		serviceutil.Fatal("vtop-cli", err)
	}
}
