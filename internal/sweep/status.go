package sweep

import (
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// RepoStatus is a set of flags describing why a relationship record is a
// cleanup candidate. The only meaningful combination is
// [StatusMutualBlock]; the classifier is responsible for producing sane
// values.
type RepoStatus uint

const (
	StatusBlockedBy RepoStatus = 1 << iota
	StatusBlocking
	StatusDeleted
	StatusDeactivated
	StatusSuspended
	StatusHidden
	StatusYourself
	StatusUnknown
)

// StatusMutualBlock marks accounts where both sides block each other.
const StatusMutualBlock = StatusBlockedBy | StatusBlocking

func (s RepoStatus) Has(flag RepoStatus) bool { return s&flag != 0 }

// Label renders a status as a fixed human-readable string. Undefined
// combinations render empty; such values never reach the user.
func (s RepoStatus) Label() string {
	if s&StatusMutualBlock == StatusMutualBlock {
		return "Mutual Block"
	}
	switch s {
	case StatusBlockedBy:
		return "Blocked By"
	case StatusBlocking:
		return "Blocking"
	case StatusDeleted:
		return "Deleted"
	case StatusDeactivated:
		return "Deactivated"
	case StatusSuspended:
		return "Suspended"
	case StatusHidden:
		return "Hidden"
	case StatusYourself:
		return "Yourself"
	case StatusUnknown:
		return "Unknown"
	}
	return ""
}

// ParseStatus maps a user-supplied category name to its flag, for CLI
// filter flags.
func ParseStatus(name string) (RepoStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blockedby", "blocked-by":
		return StatusBlockedBy, true
	case "blocking":
		return StatusBlocking, true
	case "deleted":
		return StatusDeleted, true
	case "deactivated":
		return StatusDeactivated, true
	case "suspended":
		return StatusSuspended, true
	case "hidden":
		return StatusHidden, true
	case "yourself":
		return StatusYourself, true
	case "unknown":
		return StatusUnknown, true
	}
	return 0, false
}

// Mode selects which relationship list a run operates on.
type Mode int

const (
	ModeFollows Mode = iota
	ModeBlocks
)

func (m Mode) Collection() syntax.NSID {
	if m == ModeBlocks {
		return "app.bsky.graph.block"
	}
	return "app.bsky.graph.follow"
}

func (m Mode) String() string {
	if m == ModeBlocks {
		return "blocks"
	}
	return "follows"
}

// AccountRecord is one relationship record flagged for potential cleanup.
// The engine owns these; callers may only flip ToDelete and read Visible.
type AccountRecord struct {
	Subject  syntax.DID
	Handle   syntax.Handle
	URI      syntax.ATURI
	Status   RepoStatus
	ToDelete bool
	Visible  bool
}

func (r *AccountRecord) StatusLabel() string { return r.Status.Label() }

// ToggleState maps each status category to whether records in it should be
// shown.
type ToggleState map[RepoStatus]bool

// DefaultToggles returns the per-mode visibility defaults. Block mode only
// shows the account-gone categories; the others cannot occur for accounts
// the user already blocks.
func DefaultToggles(m Mode) ToggleState {
	if m == ModeBlocks {
		return ToggleState{
			StatusDeleted:     true,
			StatusDeactivated: true,
			StatusSuspended:   true,
			StatusUnknown:     true,
		}
	}
	return ToggleState{
		StatusBlockedBy:   true,
		StatusBlocking:    true,
		StatusDeleted:     true,
		StatusDeactivated: true,
		StatusSuspended:   true,
		StatusHidden:      true,
		StatusYourself:    true,
	}
}

// Visible reports whether a record with the given status should be shown
// under these toggles. A combined status is shown while any of its flags
// is toggled on.
func (t ToggleState) Visible(s RepoStatus) bool {
	for flag, on := range t {
		if on && s.Has(flag) {
			return true
		}
	}
	return false
}

// Apply recomputes visibility for every record. Records that become hidden
// also lose their deletion mark, even if previously selected.
func (t ToggleState) Apply(records []*AccountRecord) {
	for _, r := range records {
		r.Visible = t.Visible(r.Status)
		if !r.Visible {
			r.ToDelete = false
		}
	}
}
