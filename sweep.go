package main

import (
	"bufio"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/atsweep/atsweep/internal/sweep"
)

func newSweepCmd(cctx *Context, mode sweep.Mode) *cobra.Command {
	var (
		show []string
		hide []string
		del  bool
		yes  bool
	)
	short := map[sweep.Mode]string{
		sweep.ModeFollows: "Audit your follows and clean up the dead ones",
		sweep.ModeBlocks:  "Audit your block records and clean up the stale ones",
	}
	c := cobra.Command{
		Use:   mode.String(),
		Short: short[mode],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := cctx.authed(); err != nil {
				return err
			}
			engine := cctx.engine

			stop := make(chan struct{})
			go func() {
				tick := time.NewTicker(time.Second)
				defer tick.Stop()
				for {
					select {
					case <-stop:
						return
					case <-tick.C:
						done, total := engine.Progress()
						fmt.Fprintf(cmd.ErrOrStderr(), "\rprobed %d/%d", done, total)
					}
				}
			}()
			var err error
			switch mode {
			case sweep.ModeFollows:
				_, err = engine.SweepFollows(ctx)
			case sweep.ModeBlocks:
				_, err = engine.SweepBlocks(ctx)
			}
			close(stop)
			fmt.Fprint(cmd.ErrOrStderr(), "\r")
			if err != nil {
				return err
			}

			toggles, err := mergeToggles(mode, show, hide)
			if err != nil {
				return err
			}
			engine.ApplyToggles(mode, toggles)

			visible := make([]*sweep.AccountRecord, 0)
			for _, r := range engine.Records(mode) {
				if r.Visible {
					visible = append(visible, r)
				}
			}
			if len(visible) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean up")
				return nil
			}
			sort.Slice(visible, func(i, j int) bool {
				if visible[i].Handle != visible[j].Handle {
					return visible[i].Handle < visible[j].Handle
				}
				return visible[i].Subject < visible[j].Subject
			})
			printRecords(cmd, visible)

			if !del {
				fmt.Fprintf(cmd.OutOrStdout(),
					"%d records flagged, rerun with --delete to remove them\n", len(visible))
				return nil
			}
			marked := engine.MarkVisible(mode)
			if !yes && !confirm(cmd, marked) {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
			n, err := engine.DeleteMarked(ctx, mode)
			if err != nil {
				return errors.Wrapf(err, "deleted %d of %d records", n, marked)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", n)
			return nil
		},
	}
	c.Flags().StringSliceVar(&show, "show", show, "additionally show records with these statuses")
	c.Flags().StringSliceVar(&hide, "hide", hide, "hide records with these statuses")
	c.Flags().BoolVar(&del, "delete", del, "delete every visible record")
	c.Flags().BoolVarP(&yes, "yes", "y", yes, "skip the deletion confirmation prompt")
	return &c
}

func mergeToggles(mode sweep.Mode, show, hide []string) (sweep.ToggleState, error) {
	toggles := sweep.DefaultToggles(mode)
	for _, name := range show {
		s, ok := sweep.ParseStatus(name)
		if !ok {
			return nil, errors.Errorf("unknown status %q", name)
		}
		toggles[s] = true
	}
	for _, name := range hide {
		s, ok := sweep.ParseStatus(name)
		if !ok {
			return nil, errors.Errorf("unknown status %q", name)
		}
		toggles[s] = false
	}
	return toggles, nil
}

func printRecords(cmd *cobra.Command, records []*sweep.AccountRecord) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tSTATUS\tRECORD")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Handle, r.StatusLabel(), r.URI.RecordKey())
	}
	w.Flush()
}

func confirm(cmd *cobra.Command, n int) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "delete %d records? [y/N] ", n)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
