package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/philjestin/philfmt/internal/runner"
)

// watchCmd formats the matched files, then keeps rewriting them as they change.
var watchCmd = &cobra.Command{
	Use:   "watch [file/glob ...]",
	Short: "Format files in place whenever they change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		opts := runOptions(v, args)
		// Only the shared flags apply here; watch always writes.
		opts.ListDifferent, opts.Stdin, opts.DebugCheck, opts.DebugPrintDoc = false, false, false, false
		fo, err := formatOptions(v)
		if err != nil {
			return err
		}
		eng, err := newEngine(v)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = runner.New(eng, opts, fo).Watch(ctx)
		if errors.Is(err, runner.ErrFatal) {
			exitCode = runner.ExitFatal
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
