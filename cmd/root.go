package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/philjestin/philfmt/internal/runner"
)

// cfgFile stores an optional explicit path to a config file
// (if not provided we try ./philfmt.config.{json,yaml,toml}).
var cfgFile string

// exitCode is what Execute exits with once the command returns.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "philfmt [flags] [file/glob ...]",
	Short: "Format JavaScript and TypeScript files",
	Long: `philfmt formats the files matched by the given patterns.

By default formatted output is printed to stdout. Use --write to rewrite
files in place or --list-different to only print the files that would
change.`,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	// PersistentPreRunE executes before any subcommand; we use it to load config/env.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		if err := initLogging(viper.GetString("loglevel")); err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			log.Info("using config file %s", used)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		opts := runOptions(v, args)
		if len(opts.Patterns) == 0 && !opts.Stdin {
			return fmt.Errorf("no files given\n\n%s", cmd.UsageString())
		}
		fo, err := formatOptions(v)
		if err != nil {
			return err
		}
		eng, err := newEngine(v)
		if err != nil {
			return err
		}
		exitCode = runner.New(eng, opts, fo).Run(cmd.Context())
		return nil
	},
}

// Execute is called from main.go and starts the CLI. It never returns.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = runner.ExitFatal
		}
	}
	os.Exit(exitCode)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./philfmt.config.{json,yaml,toml})")
	pf.String("loglevel", "warning", "diagnostic log level: debug|info|notice|warning|error|critical")

	// Formatting options, passed through to the engine.
	pf.Int("print-width", 80, "line width the engine aims for")
	pf.Int("tab-width", 2, "spaces per indentation level")
	pf.Bool("use-tabs", false, "indent with tabs instead of spaces")
	pf.Bool("single-quote", false, "prefer single quotes")
	pf.String("parser", "", "parser to use: babel|flow|typescript|tsx (default: inferred from the file name)")
	pf.Int("cursor-offset", -1, "print the cursor position after formatting this offset")
	pf.Int("range-start", 0, "format only from this offset")
	pf.Int("range-end", -1, "format only up to this offset (-1: end of file)")

	pf.String("engine", "builtin", "formatting engine: builtin|exec")
	pf.String("engine-command", "", "formatter command for --engine exec; {filepath} is replaced by the file")
	pf.Bool("with-node-modules", false, "process files inside node_modules")
	pf.IntP("jobs", "j", 1, "number of files formatted concurrently")

	f := rootCmd.Flags()
	f.BoolP("write", "w", false, "edit files in place")
	f.BoolP("list-different", "l", false, "print the files whose formatting differs")
	f.Bool("stdin", false, "read input from stdin")
	f.String("stdin-filepath", "", "path used to infer the parser for stdin")
	f.Bool("debug-check", false, "check that formatting is stable and keeps the syntax tree")
	f.Bool("debug-print-doc", false, "print the intermediate layout document")

	// Bind these flags to viper keys so config/env/flags merge cleanly.
	for key, flag := range flagKeys {
		fl := pf.Lookup(flag)
		if fl == nil {
			fl = f.Lookup(flag)
		}
		_ = viper.BindPFlag(key, fl)
	}
	setDefaults(viper.GetViper())
}
