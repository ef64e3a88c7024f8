package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/atsweep/atsweep/internal/sweep"
)

func main() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	var (
		ctx         = newContext()
		logLevelStr = "warn"
		debug       bool
	)
	c := cobra.Command{
		Use:           "atsweep",
		Short:         "Audit and clean up stale follows and blocks on an atproto account",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			if err = ctx.readEnv(); err != nil {
				return err
			}
			if len(ctx.conf.LogLevel) > 0 {
				logLevelStr = ctx.conf.LogLevel
			}
			var lvl slog.Level
			if err = lvl.UnmarshalText([]byte(logLevelStr)); err != nil {
				return err
			}
			if debug {
				lvl = slog.LevelDebug
			}
			l := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: lvl,
			}))
			slog.SetDefault(l)
			ctx.logger = l
			return ctx.init()
		},
	}

	c.AddCommand(
		newLoginCmd(ctx),
		newLogoutCmd(ctx),
		newSweepCmd(ctx, sweep.ModeFollows),
		newSweepCmd(ctx, sweep.ModeBlocks),
	)
	c.PersistentFlags().StringVarP(&logLevelStr, "log-level", "l", logLevelStr, "set the log level (debug|info|warn|error)")
	c.PersistentFlags().BoolVarP(&debug, "debug", "d", debug, "turn on debug mode")
	c.PersistentFlags().BoolVar(&ctx.noCache, "no-cache", ctx.noCache, "disable the handle lookup cache")
	c.PersistentFlags().StringVar(&ctx.conf.PDSURL, "pds", ctx.conf.PDSURL, "override the pds endpoint")
	return &c
}
