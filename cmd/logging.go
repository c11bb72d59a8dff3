package cmd

import (
	"fmt"
	"os"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("cmd")

var logFormat = logging.MustStringFormatter(`%{color}%{level:.4s}%{color:reset} %{module}: %{message}`)

// initLogging sends diagnostics to stderr at the given level. Per-file report
// lines do not go through here.
func initLogging(level string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --loglevel %q", level)
	}
	backend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), logFormat)
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return nil
}
