// Package session persists the authenticated session between command
// invocations.
package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/harrybrwn/xdg"
	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/bsky"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Session is the locally stored authentication state.
type Session struct {
	DID        syntax.DID    `json:"did"`
	Handle     syntax.Handle `json:"handle"`
	PDSURL     string        `json:"pds_url"`
	AccessJwt  string        `json:"access_jwt"`
	RefreshJwt string        `json:"refresh_jwt"`
}

// Store reads and writes the session file. The file holds bearer tokens
// so it is written with owner-only permissions.
type Store struct {
	path string
}

func NewStore() *Store {
	return &Store{path: filepath.Join(xdg.Data("atsweep"), "session.json")}
}

// NewStoreAt is for tests and non-standard layouts.
func NewStoreAt(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

func (s *Store) Load() (*Session, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNotLoggedIn
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	var sess Session
	if err = json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Wrap(err, "session file is corrupt")
	}
	if len(sess.AccessJwt) == 0 || len(sess.DID) == 0 {
		return nil, ErrNotLoggedIn
	}
	return &sess, nil
}

func (s *Store) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.WithStack(err)
	}
	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(s.path, raw, 0600))
}

func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return errors.WithStack(err)
}

// Authenticator creates sessions on a PDS.
type Authenticator interface {
	CreateSession(ctx context.Context, identifier, password string) (*bsky.Session, error)
}

// Login authenticates against the PDS and persists the result.
func Login(ctx context.Context, auth Authenticator, store *Store, pdsURL, identifier, password string) (*Session, error) {
	res, err := auth.CreateSession(ctx, identifier, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	sess := Session{
		DID:        res.DID,
		Handle:     res.Handle,
		PDSURL:     pdsURL,
		AccessJwt:  res.AccessJwt,
		RefreshJwt: res.RefreshJwt,
	}
	if err = store.Save(&sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
