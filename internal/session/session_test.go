package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/bsky"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreAt(filepath.Join(t.TempDir(), "state", "session.json"))
}

func TestStore_RoundTrip(t *testing.T) {
	is := is.New(t)
	store := testStore(t)

	_, err := store.Load()
	is.True(errors.Is(err, ErrNotLoggedIn))

	want := Session{
		DID:        "did:plc:abc123",
		Handle:     "me.example.com",
		PDSURL:     "https://pds.example.com",
		AccessJwt:  "access-token",
		RefreshJwt: "refresh-token",
	}
	is.NoErr(store.Save(&want))

	got, err := store.Load()
	is.NoErr(err)
	is.Equal(*got, want)

	stat, err := os.Stat(store.Path())
	is.NoErr(err)
	is.Equal(stat.Mode().Perm(), os.FileMode(0600))
}

func TestStore_Clear(t *testing.T) {
	is := is.New(t)
	store := testStore(t)
	is.NoErr(store.Clear()) // clearing a missing file is fine
	is.NoErr(store.Save(&Session{DID: "did:plc:x", AccessJwt: "t"}))
	is.NoErr(store.Clear())
	_, err := store.Load()
	is.True(errors.Is(err, ErrNotLoggedIn))
}

func TestStore_Corrupt(t *testing.T) {
	is := is.New(t)
	store := testStore(t)
	is.NoErr(os.MkdirAll(filepath.Dir(store.Path()), 0755))
	is.NoErr(os.WriteFile(store.Path(), []byte("{not json"), 0600))
	_, err := store.Load()
	is.True(err != nil)
	is.True(!errors.Is(err, ErrNotLoggedIn))
}

type fakeAuth struct {
	session *bsky.Session
	err     error
	gotID   string
	gotPass string
}

func (f *fakeAuth) CreateSession(ctx context.Context, identifier, password string) (*bsky.Session, error) {
	f.gotID, f.gotPass = identifier, password
	return f.session, f.err
}

func TestLogin(t *testing.T) {
	is := is.New(t)
	store := testStore(t)
	auth := fakeAuth{session: &bsky.Session{
		DID:        "did:plc:abc123",
		Handle:     "me.example.com",
		AccessJwt:  "access",
		RefreshJwt: "refresh",
	}}
	sess, err := Login(t.Context(), &auth, store, "https://pds.example.com", "me.example.com", "hunter2")
	is.NoErr(err)
	is.Equal(auth.gotID, "me.example.com")
	is.Equal(auth.gotPass, "hunter2")
	is.Equal(sess.PDSURL, "https://pds.example.com")

	loaded, err := store.Load()
	is.NoErr(err)
	is.Equal(*loaded, *sess)
}

func TestLogin_Failure(t *testing.T) {
	is := is.New(t)
	store := testStore(t)
	auth := fakeAuth{err: errors.New("AuthenticationRequired")}
	_, err := Login(t.Context(), &auth, store, "https://pds.example.com", "me", "bad")
	is.True(err != nil)
	_, err = store.Load()
	is.True(errors.Is(err, ErrNotLoggedIn)) // nothing persisted
}
