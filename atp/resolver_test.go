package atp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/matryer/is"
)

func TestResolveDID_Plc(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Equal(r.URL.Path, "/did:plc:abc123")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "did:plc:abc123",
			"alsoKnownAs": ["at://alice.test"],
			"service": [{
				"id": "#atproto_pds",
				"type": "AtprotoPersonalDataServer",
				"serviceEndpoint": "https://pds.test"
			}]
		}`))
	}))
	defer srv.Close()

	r, err := NewResolver(srv.URL, srv.Client())
	is.NoErr(err)
	doc, err := r.ResolveDID(t.Context(), syntax.DID("did:plc:abc123"))
	is.NoErr(err)
	is.Equal(doc.DID, syntax.DID("did:plc:abc123"))
	is.Equal(HandleFromAKA(doc.AlsoKnownAs), syntax.Handle("alice.test"))
}

func TestLookupDIDHandle_NotFound(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"DID not registered"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	r, err := NewResolver(srv.URL, srv.Client())
	is.NoErr(err)
	h, err := r.LookupDIDHandle(t.Context(), syntax.DID("did:plc:gone"))
	is.True(err != nil)
	is.Equal(h, syntax.HandleInvalid)
}

func TestHandleFromAKA(t *testing.T) {
	is := is.New(t)
	is.Equal(HandleFromAKA(nil), syntax.HandleInvalid)
	is.Equal(HandleFromAKA([]string{"not a uri", "at://bob.test"}), syntax.Handle("bob.test"))
	is.Equal(HandleFromAKA([]string{"at://in valid"}), syntax.HandleInvalid)
}

func TestResolveDID_UnknownMethod(t *testing.T) {
	is := is.New(t)
	r, err := NewResolver("https://plc.directory", nil)
	is.NoErr(err)
	_, err = r.ResolveDID(t.Context(), syntax.DID("did:key:zQ3sh"))
	is.True(err != nil)
}
