package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/philjestin/philfmt/internal/engine"
	"github.com/philjestin/philfmt/internal/runner"
)

// flagKeys maps config keys to the flags that set them. Keys use the
// camelCase spelling of the config file.
var flagKeys = map[string]string{
	"loglevel":        "loglevel",
	"printWidth":      "print-width",
	"tabWidth":        "tab-width",
	"useTabs":         "use-tabs",
	"singleQuote":     "single-quote",
	"parser":          "parser",
	"cursorOffset":    "cursor-offset",
	"rangeStart":      "range-start",
	"rangeEnd":        "range-end",
	"engine":          "engine",
	"engineCommand":   "engine-command",
	"withNodeModules": "with-node-modules",
	"jobs":            "jobs",
	"write":           "write",
	"listDifferent":   "list-different",
	"stdin":           "stdin",
	"stdinFilepath":   "stdin-filepath",
	"debugCheck":      "debug-check",
	"debugPrintDoc":   "debug-print-doc",
}

func setDefaults(v *viper.Viper) {
	d := engine.DefaultOptions()
	v.SetDefault("printWidth", d.PrintWidth)
	v.SetDefault("tabWidth", d.TabWidth)
	v.SetDefault("useTabs", d.UseTabs)
	v.SetDefault("singleQuote", d.SingleQuote)
	v.SetDefault("parser", d.Parser)
	v.SetDefault("cursorOffset", d.CursorOffset)
	v.SetDefault("rangeStart", d.RangeStart)
	v.SetDefault("rangeEnd", d.RangeEnd)
	v.SetDefault("engine", "builtin")
	v.SetDefault("jobs", 1)
	v.SetDefault("loglevel", "warning")
}

// loadConfig reads the config file and environment into v. A missing default
// config file is not an error; a missing explicit one is.
func loadConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("philfmt.config")
		// Let viper detect the extension (json/yaml/toml) automatically.
	}

	// Read env vars with prefix PHILFMT_, e.g. PHILFMT_PRINTWIDTH
	v.SetEnvPrefix("PHILFMT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// formatOptions assembles the engine options (flags > env > config > defaults).
func formatOptions(v *viper.Viper) (engine.Options, error) {
	opts := engine.DefaultOptions()
	if err := v.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("config unmarshal: %w", err)
	}
	return opts, nil
}

func runOptions(v *viper.Viper, patterns []string) runner.Options {
	return runner.Options{
		Patterns:          patterns,
		Write:             v.GetBool("write"),
		ListDifferent:     v.GetBool("listDifferent"),
		IgnoreNodeModules: !v.GetBool("withNodeModules"),
		Stdin:             v.GetBool("stdin"),
		StdinFilepath:     v.GetString("stdinFilepath"),
		DebugCheck:        v.GetBool("debugCheck"),
		DebugPrintDoc:     v.GetBool("debugPrintDoc"),
		Jobs:              v.GetInt("jobs"),
	}
}

func newEngine(v *viper.Viper) (engine.Engine, error) {
	switch name := v.GetString("engine"); name {
	case "", "builtin":
		return engine.NewBuiltin(), nil
	case "exec":
		command := v.GetString("engineCommand")
		if command == "" {
			return nil, errors.New("--engine exec requires --engine-command")
		}
		return engine.NewExec(command)
	default:
		return nil, fmt.Errorf("unknown engine %q (want builtin or exec)", name)
	}
}
