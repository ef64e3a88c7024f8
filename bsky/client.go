package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/xrpc"
)

// MaxWrites is the protocol ceiling on operations per applyWrites call.
const MaxWrites = 200

// Client layers the typed operations the cleanup engine consumes over a
// raw XRPC client.
type Client struct {
	rpc *xrpc.Client
}

func NewClient(rpc *xrpc.Client) *Client {
	return &Client{rpc: rpc}
}

// GetProfile fetches the live profile view of one account, including the
// viewer relationship and moderation labels. Inaccessible accounts come
// back as a *xrpc.ErrorResponse.
func (c *Client) GetProfile(ctx context.Context, actor string) (*ProfileView, error) {
	var p ProfileView
	q := make(url.Values)
	q.Set("actor", actor)
	err := c.query(ctx, "app.bsky.actor.getProfile", q, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBlocks fetches one page of the authoritative live outgoing-block view.
func (c *Client) GetBlocks(ctx context.Context, limit int, cursor string) (*BlockList, error) {
	var list BlockList
	q := make(url.Values)
	if limit > 0 {
		q.Set("limit", strconv.FormatInt(int64(limit), 10))
	}
	if len(cursor) > 0 {
		q.Set("cursor", cursor)
	}
	return &list, c.query(ctx, "app.bsky.graph.getBlocks", q, &list)
}

// ListRecords enumerates one page of the repo's own records for a
// collection.
func (c *Client) ListRecords(ctx context.Context, repo syntax.DID, collection syntax.NSID, limit int, cursor string) (*RecordList[GraphRecord], error) {
	var list RecordList[GraphRecord]
	q := make(url.Values)
	q.Set("repo", string(repo))
	q.Set("collection", string(collection))
	if limit > 0 {
		q.Set("limit", strconv.FormatInt(int64(limit), 10))
	}
	if len(cursor) > 0 {
		q.Set("cursor", cursor)
	}
	return &list, c.query(ctx, "com.atproto.repo.listRecords", q, &list)
}

// ApplyWrites submits one batch of record deletions against the repo.
func (c *Client) ApplyWrites(ctx context.Context, repo syntax.DID, writes []DeleteOp) error {
	if len(writes) > MaxWrites {
		return errors.Errorf("too many writes in one batch: %d > %d", len(writes), MaxWrites)
	}
	req := struct {
		Repo   syntax.DID `json:"repo"`
		Writes []DeleteOp `json:"writes"`
	}{Repo: repo, Writes: writes}
	return c.procedure(ctx, "com.atproto.repo.applyWrites", &req, nil)
}

// CreateSession logs in with an identifier (handle or DID) and an app
// password.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	var session Session
	req := struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}{Identifier: identifier, Password: password}
	err := c.procedure(ctx, "com.atproto.server.createSession", &req, &session)
	if err != nil {
		return nil, err
	}
	if len(session.AccessJwt) == 0 {
		return nil, errors.New("no access token in createSession response")
	}
	return &session, nil
}

func (c *Client) query(ctx context.Context, nsid string, q url.Values, dst any) error {
	body, err := c.rpc.Query(ctx, &xrpc.Request{NSID: nsid, Params: q})
	if err != nil {
		return err
	}
	defer body.Close()
	return errors.WithStack(json.NewDecoder(body).Decode(dst))
}

func (c *Client) procedure(ctx context.Context, nsid string, payload, dst any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return errors.WithStack(err)
	}
	body, err := c.rpc.Procedure(ctx, &xrpc.Request{
		NSID:        nsid,
		ContentType: "application/json",
		Body:        &buf,
	})
	if err != nil {
		return err
	}
	defer body.Close()
	if dst == nil {
		return nil
	}
	return errors.WithStack(json.NewDecoder(body).Decode(dst))
}
