package main

import (
	"log/slog"
	"net/http"

	"github.com/bluesky-social/indigo/atproto/identity"
	"github.com/harrybrwn/env"
	"github.com/harrybrwn/xdg"
	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/atp"
	"github.com/atsweep/atsweep/bsky"
	"github.com/atsweep/atsweep/internal/session"
	"github.com/atsweep/atsweep/internal/sweep"
	"github.com/atsweep/atsweep/xrpc"
)

var HttpClient = http.DefaultClient

type Config struct {
	PlcURL string
	// PDSURL overrides the endpoint stored with the session.
	PDSURL          string
	Password        string
	PacingThreshold int
	LogLevel        string `env:"LOG_LEVEL,noprefix"`
}

type Context struct {
	conf    Config
	logger  *slog.Logger
	store   *session.Store
	session *session.Session

	resolver *atp.Resolver
	handles  *atp.HandleResolver
	fallback sweep.HandleSource

	api    *bsky.Client
	engine *sweep.Engine

	noCache bool
}

func newContext() *Context {
	return &Context{
		conf: Config{
			PlcURL:          "https://plc.directory",
			PacingThreshold: 1000,
		},
		logger: slog.Default(),
	}
}

func (cctx *Context) readEnv() error {
	return env.ReadEnvPrefixed("sweep", &cctx.conf)
}

func (cctx *Context) init() (err error) {
	cctx.store = session.NewStore()
	cctx.resolver, err = atp.NewResolver(cctx.conf.PlcURL, HttpClient)
	if err != nil {
		return err
	}
	cctx.handles, err = atp.NewDefaultHandleResolver()
	if err != nil {
		return err
	}
	cctx.fallback = cctx.resolver
	if !cctx.noCache {
		cctx.fallback = newHandleCache(cctx.resolver, xdg.Cache("atsweep"), cctx.logger)
	}
	return nil
}

// authed loads the stored session and builds the authenticated client and
// the reconciliation engine. Call it from commands that talk to the PDS.
func (cctx *Context) authed() error {
	sess, err := cctx.store.Load()
	if err != nil {
		return err
	}
	cctx.session = sess
	pds := sess.PDSURL
	if len(cctx.conf.PDSURL) > 0 {
		pds = cctx.conf.PDSURL
	}
	if len(pds) == 0 {
		return errors.New("session has no pds endpoint, log in again")
	}
	cctx.api = bsky.NewClient(xrpc.NewClient(
		xrpc.WithURL(pds),
		xrpc.WithJwt(sess.AccessJwt),
		xrpc.WithClient(HttpClient),
		xrpc.WithEnv(),
	))
	cctx.engine = sweep.New(cctx.api, cctx.fallback, sess.DID, cctx.logger)
	cctx.engine.PacingThreshold = cctx.conf.PacingThreshold
	return nil
}

// pdsEndpoint resolves an account's PDS from its DID document.
func (cctx *Context) pdsEndpoint(doc *identity.DIDDocument) (string, error) {
	if len(cctx.conf.PDSURL) > 0 {
		return cctx.conf.PDSURL, nil
	}
	ident := identity.ParseIdentity(doc)
	endpoint := ident.PDSEndpoint()
	if len(endpoint) == 0 {
		return "", errors.Errorf("did document for %s declares no pds service", doc.DID)
	}
	return endpoint, nil
}
