package bsky

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/matryer/is"
	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/xrpc"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host := strings.TrimPrefix(srv.URL, "http://")
	return NewClient(xrpc.NewClient(xrpc.WithHost(host), xrpc.WithInsecure()))
}

func TestGetProfile(t *testing.T) {
	is := is.New(t)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		is.Equal(r.URL.Path, "/xrpc/app.bsky.actor.getProfile")
		is.Equal(r.URL.Query().Get("actor"), "did:plc:abc123")
		_, _ = w.Write([]byte(`{
			"did": "did:plc:abc123",
			"handle": "alice.test",
			"labels": [{"src":"did:plc:mod","uri":"at://did:plc:abc123","val":"!hide"}],
			"viewer": {"blockedBy": true, "blocking": "at://did:plc:self/app.bsky.graph.block/3k2a"}
		}`))
	})
	p, err := c.GetProfile(t.Context(), "did:plc:abc123")
	is.NoErr(err)
	is.Equal(p.Handle, syntax.Handle("alice.test"))
	is.True(p.HasLabel("!hide"))
	is.True(!p.HasLabel("porn"))
	is.True(p.Viewer.BlockedBy)
	is.True(p.Viewer.IsBlocking())
}

func TestGetProfile_Deactivated(t *testing.T) {
	is := is.New(t)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"AccountDeactivated","message":"Account is deactivated"}`))
	})
	_, err := c.GetProfile(t.Context(), "did:plc:gone")
	var resp *xrpc.ErrorResponse
	is.True(errors.As(err, &resp))
	is.Equal(resp.Code, xrpc.AccountDeactivated)
}

func TestListRecords_SubjectShapes(t *testing.T) {
	is := is.New(t)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		is.Equal(q.Get("repo"), "did:plc:self")
		is.Equal(q.Get("collection"), "app.bsky.graph.follow")
		is.Equal(q.Get("limit"), "100")
		_, _ = w.Write([]byte(`{
			"cursor": "3k2b",
			"records": [
				{"uri": "at://did:plc:self/app.bsky.graph.follow/3k2a", "cid": "bafy1",
				 "value": {"$type": "app.bsky.graph.follow", "subject": "did:plc:one", "createdAt": "2024-05-01T10:00:00Z"}},
				{"uri": "at://did:plc:self/app.bsky.graph.follow/3k2b", "cid": "bafy2",
				 "value": {"$type": "app.bsky.graph.follow", "subject": {"uri": "at://x", "cid": "bafy3"}, "createdAt": "2024-05-01T11:00:00Z"}}
			]
		}`))
	})
	list, err := c.ListRecords(t.Context(), "did:plc:self", CollectionFollow, 100, "")
	is.NoErr(err)
	is.Equal(list.Cursor, "3k2b")
	is.Equal(len(list.Records), 2)
	is.True(list.Records[0].Value.Subject.IsDID())
	is.Equal(list.Records[0].Value.Subject.DID, "did:plc:one")
	is.True(!list.Records[1].Value.Subject.IsDID())
	is.Equal(list.Records[0].URI.RecordKey(), syntax.RecordKey("3k2a"))
}

func TestApplyWrites(t *testing.T) {
	is := is.New(t)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		is.Equal(r.Method, "POST")
		is.Equal(r.URL.Path, "/xrpc/com.atproto.repo.applyWrites")
		var req struct {
			Repo   string `json:"repo"`
			Writes []struct {
				Type       string `json:"$type"`
				Collection string `json:"collection"`
				RKey       string `json:"rkey"`
			} `json:"writes"`
		}
		is.NoErr(json.NewDecoder(r.Body).Decode(&req))
		is.Equal(req.Repo, "did:plc:self")
		is.Equal(len(req.Writes), 2)
		is.Equal(req.Writes[0].Type, "com.atproto.repo.applyWrites#delete")
		is.Equal(req.Writes[1].RKey, "3k2b")
		_, _ = w.Write([]byte(`{}`))
	})
	err := c.ApplyWrites(t.Context(), "did:plc:self", []DeleteOp{
		NewDeleteOp(CollectionFollow, "3k2a"),
		NewDeleteOp(CollectionFollow, "3k2b"),
	})
	is.NoErr(err)
}

func TestApplyWrites_TooMany(t *testing.T) {
	is := is.New(t)
	c := NewClient(xrpc.NewClient())
	writes := make([]DeleteOp, MaxWrites+1)
	err := c.ApplyWrites(t.Context(), "did:plc:self", writes)
	is.True(err != nil)
}

func TestCreateSession(t *testing.T) {
	is := is.New(t)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		is.NoErr(json.NewDecoder(r.Body).Decode(&req))
		is.Equal(req.Identifier, "alice.test")
		_, _ = w.Write([]byte(`{
			"did": "did:plc:abc123", "handle": "alice.test",
			"accessJwt": "access", "refreshJwt": "refresh"
		}`))
	})
	session, err := c.CreateSession(t.Context(), "alice.test", "app-password")
	is.NoErr(err)
	is.Equal(session.DID, syntax.DID("did:plc:abc123"))
	is.Equal(session.AccessJwt, "access")
}
