package sweep

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/pkg/errors"

	"github.com/atsweep/atsweep/bsky"
	"github.com/atsweep/atsweep/xrpc"
)

// labelHide is the moderation label that hides a profile outright.
const labelHide = "!hide"

// ProfileSource is the live profile view, the single source of truth for
// active accounts.
type ProfileSource interface {
	GetProfile(ctx context.Context, actor string) (*bsky.ProfileView, error)
}

// HandleSource recovers a handle for accounts whose profile cannot be
// fetched, bypassing the XRPC API.
type HandleSource interface {
	LookupDIDHandle(ctx context.Context, did syntax.DID) (syntax.Handle, error)
}

// Classifier probes one account at a time and maps the outcome onto the
// status taxonomy. A failed probe is an expected, information-bearing
// outcome here: the network signals gone accounts through errors, not
// status fields, so error payloads get parsed instead of discarded.
type Classifier struct {
	Profiles ProfileSource
	Fallback HandleSource
	// Self is the authenticated user's DID.
	Self   syntax.DID
	Logger *slog.Logger
}

// Probe is the outcome of classifying one account. A zero Status means the
// account is healthy and needs no cleanup.
type Probe struct {
	Handle syntax.Handle
	Status RepoStatus
	Err    *ProbeError
}

// Flagged reports whether the probe found an actionable condition.
func (p *Probe) Flagged() bool { return p.Status != 0 }

// Classify never returns a Go error; every failure is recovered into a
// status plus a diagnostic ProbeError.
func (c *Classifier) Classify(ctx context.Context, did syntax.DID) Probe {
	profile, err := c.Profiles.GetProfile(ctx, did.String())
	if err != nil {
		return c.classifyError(ctx, did, err)
	}
	if len(profile.DID) == 0 || len(profile.Handle) == 0 {
		return Probe{
			Handle: c.bestEffortHandle(ctx, did),
			Status: StatusUnknown,
			Err: &ProbeError{
				Kind:    ErrValidation,
				Message: "profile response missing did or handle",
			},
		}
	}
	p := Probe{Handle: profile.Handle}
	switch {
	case profile.HasLabel(labelHide):
		// a moderation hide outranks block relationships
		p.Status = StatusHidden
	case profile.Viewer != nil && profile.Viewer.BlockedBy:
		p.Status = StatusBlockedBy
		if profile.Viewer.IsBlocking() {
			p.Status = StatusMutualBlock
		}
	case profile.DID == c.Self:
		p.Status = StatusYourself
	case profile.Viewer.IsBlocking():
		p.Status = StatusBlocking
	}
	return p
}

func (c *Classifier) classifyError(ctx context.Context, did syntax.DID, err error) Probe {
	p := Probe{Handle: c.bestEffortHandle(ctx, did)}
	var resp *xrpc.ErrorResponse
	if !errors.As(err, &resp) {
		p.Status = StatusUnknown
		p.Err = &ProbeError{Kind: ErrNetwork, Message: "profile fetch failed", Err: err}
		return p
	}
	msg := strings.ToLower(resp.Message)
	switch {
	case resp.Code == xrpc.AccountDeactivated || strings.Contains(msg, "deactivated"):
		p.Status = StatusDeactivated
		p.Err = &ProbeError{Kind: ErrAPI, Message: "account deactivated", Err: err}
	case resp.Code == xrpc.AccountSuspended || resp.Code == xrpc.AccountTakedown ||
		strings.Contains(msg, "suspended"):
		p.Status = StatusSuspended
		p.Err = &ProbeError{Kind: ErrAPI, Message: "account suspended", Err: err}
	case resp.Code == xrpc.ActorNotFound ||
		strings.Contains(msg, "deleted") ||
		strings.Contains(msg, "not found") ||
		resp.Status == http.StatusBadRequest:
		p.Status = StatusDeleted
		p.Err = &ProbeError{Kind: ErrAPI, Message: "account deleted", Err: err}
	default:
		p.Status = StatusUnknown
		p.Err = &ProbeError{Kind: ErrUnknown, Message: "unrecognized profile error", Err: err}
	}
	return p
}

func (c *Classifier) bestEffortHandle(ctx context.Context, did syntax.DID) syntax.Handle {
	if c.Fallback == nil {
		return syntax.HandleInvalid
	}
	h, err := c.Fallback.LookupDIDHandle(ctx, did)
	if err != nil {
		c.logger().Debug("identity document lookup failed",
			"did", did.String(), "error", err)
		return syntax.HandleInvalid
	}
	return h
}

func (c *Classifier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
