package main

import (
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/atsweep/atsweep/bsky"
	"github.com/atsweep/atsweep/internal/session"
	"github.com/atsweep/atsweep/xrpc"
)

func newLoginCmd(cctx *Context) *cobra.Command {
	var password string
	c := cobra.Command{
		Use:   "login <handle>",
		Short: "Authenticate against your pds and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(password) == 0 {
				password = cctx.conf.Password
			}
			if len(password) == 0 {
				return errors.New("no password given, use --password or SWEEP_PASSWORD")
			}
			handle, err := syntax.ParseHandle(args[0])
			if err != nil {
				return errors.Wrap(err, "invalid handle")
			}
			did, err := cctx.handles.ResolveHandle(ctx, handle.String())
			if err != nil {
				return errors.Wrapf(err, "failed to resolve handle %q", handle)
			}
			doc, err := cctx.resolver.ResolveDID(ctx, did)
			if err != nil {
				return errors.Wrapf(err, "failed to resolve %s", did)
			}
			pds, err := cctx.pdsEndpoint(doc)
			if err != nil {
				return err
			}
			rpc := xrpc.NewClient(
				xrpc.WithURL(pds),
				xrpc.WithClient(HttpClient),
				xrpc.WithEnv(),
			)
			if err = rpc.Ping(ctx); err != nil {
				return errors.Wrapf(err, "pds %s is not reachable", pds)
			}
			sess, err := session.Login(ctx, bsky.NewClient(rpc), cctx.store, pds, handle.String(), password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", sess.Handle, sess.DID)
			return nil
		},
	}
	c.Flags().StringVarP(&password, "password", "p", password, "account or app password")
	return &c
}

func newLogoutCmd(cctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cctx.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
