package bsky

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// Relationship record collections in the user's repository.
const (
	CollectionFollow = syntax.NSID("app.bsky.graph.follow")
	CollectionBlock  = syntax.NSID("app.bsky.graph.block")
)

type Label struct {
	Src syntax.DID `json:"src"`
	URI string     `json:"uri"`
	Val string     `json:"val"`
}

// ViewerState is the authenticated user's live relationship perspective on
// a profile.
type ViewerState struct {
	Muted      bool   `json:"muted,omitempty"`
	BlockedBy  bool   `json:"blockedBy,omitempty"`
	Blocking   string `json:"blocking,omitempty"`
	Following  string `json:"following,omitempty"`
	FollowedBy string `json:"followedBy,omitempty"`
}

// IsBlocking reports whether the viewer has an outgoing block on the
// profile. The wire field is the at-uri of the viewer's block record.
func (v *ViewerState) IsBlocking() bool { return v != nil && len(v.Blocking) > 0 }

type ProfileView struct {
	DID         syntax.DID    `json:"did"`
	Handle      syntax.Handle `json:"handle"`
	DisplayName string        `json:"displayName,omitempty"`
	Description string        `json:"description,omitempty"`
	Labels      []Label       `json:"labels,omitempty"`
	Viewer      *ViewerState  `json:"viewer,omitempty"`
}

func (p *ProfileView) HasLabel(val string) bool {
	for _, l := range p.Labels {
		if l.Val == val {
			return true
		}
	}
	return false
}

// BlockList is one page of the live outgoing-block view
// (app.bsky.graph.getBlocks).
type BlockList struct {
	Blocks []ProfileView `json:"blocks"`
	Cursor string        `json:"cursor,omitempty"`
}

type RecordList[T any] struct {
	Records []Record[T] `json:"records"`
	Cursor  string      `json:"cursor,omitempty"`
}

type Record[T any] struct {
	URI   syntax.ATURI `json:"uri"`
	CID   string       `json:"cid"`
	Value T            `json:"value"`
}

// GraphRecord is the value of a follow or block record. The subject is a
// bare DID for graph records but an object for other record types, so it
// goes through [Subject].
type GraphRecord struct {
	Type      string    `json:"$type"`
	Subject   Subject   `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

type Subject struct {
	CID string `json:"cid"`
	URI string `json:"uri"`
	// DID is populated when the subject is a string not an object.
	DID string `json:"-"`
}

func (s *Subject) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' && b[len(b)-1] == '"' {
		s.DID = string(b[1 : len(b)-1])
		return nil
	}
	type subject Subject
	return json.Unmarshal(b, (*subject)(s))
}

func (s *Subject) MarshalJSON() ([]byte, error) {
	if s.IsDID() {
		return []byte(fmt.Sprintf("%q", s.DID)), nil
	}
	type subject Subject
	return json.Marshal((*subject)(s))
}

func (s *Subject) IsDID() bool { return len(s.DID) > 0 }

// DeleteOp is one com.atproto.repo.applyWrites#delete operation.
type DeleteOp struct {
	Type       string           `json:"$type"`
	Collection syntax.NSID      `json:"collection"`
	RKey       syntax.RecordKey `json:"rkey"`
}

func NewDeleteOp(collection syntax.NSID, rkey syntax.RecordKey) DeleteOp {
	return DeleteOp{
		Type:       "com.atproto.repo.applyWrites#delete",
		Collection: collection,
		RKey:       rkey,
	}
}

// Session is the result of com.atproto.server.createSession.
type Session struct {
	DID        syntax.DID    `json:"did"`
	Handle     syntax.Handle `json:"handle"`
	Email      string        `json:"email,omitempty"`
	AccessJwt  string        `json:"accessJwt"`
	RefreshJwt string        `json:"refreshJwt"`
	Active     bool          `json:"active,omitempty"`
	Status     string        `json:"status,omitempty"`
}
