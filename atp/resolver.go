package atp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/bluesky-social/indigo/atproto/identity"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/pkg/errors"
)

// Resolver resolves DID documents straight from the identity layer,
// bypassing the XRPC API. It is the fallback used to recover a handle for
// accounts whose profile can no longer be fetched.
type Resolver struct {
	PlcURL     *url.URL
	HttpClient *http.Client
}

func NewResolver(plcURL string, client *http.Client) (*Resolver, error) {
	u, err := url.Parse(plcURL)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{PlcURL: u, HttpClient: client}, nil
}

func (r *Resolver) ResolveDID(ctx context.Context, did syntax.DID) (*identity.DIDDocument, error) {
	var doc identity.DIDDocument
	switch did.Method() {
	case "web":
		return &doc, r.resolveDidWeb(ctx, did, &doc)
	case "plc":
		return &doc, r.resolveDidPlc(ctx, did, &doc)
	default:
		return nil, errors.Errorf("unknown did method %q", did.Method())
	}
}

// LookupDIDHandle resolves the DID document and returns the handle it
// declares, or [syntax.HandleInvalid] when the document declares none.
func (r *Resolver) LookupDIDHandle(ctx context.Context, did syntax.DID) (syntax.Handle, error) {
	doc, err := r.ResolveDID(ctx, did)
	if err != nil {
		return syntax.HandleInvalid, err
	}
	return HandleFromAKA(doc.AlsoKnownAs), nil
}

// HandleFromAKA picks the first parsable handle out of a DID document's
// alsoKnownAs URIs (at://<handle>).
func HandleFromAKA(aka []string) syntax.Handle {
	for _, uri := range aka {
		u, err := url.Parse(uri)
		if err != nil {
			continue
		}
		handle, err := syntax.ParseHandle(u.Host)
		if err != nil {
			continue
		}
		return handle
	}
	return syntax.HandleInvalid
}

func (r *Resolver) resolveDidWeb(ctx context.Context, did syntax.DID, dst any) error {
	hostname := did.Identifier()
	handle, err := syntax.ParseHandle(hostname)
	if err != nil {
		return errors.Errorf("did:web identifier not a simple hostname: %s", hostname)
	}
	if !handle.AllowedTLD() {
		return errors.Errorf("did:web hostname has disallowed TLD: %s", hostname)
	}
	u := url.URL{Scheme: "https", Host: hostname, Path: "/.well-known/did.json"}
	req := http.Request{Method: "GET", Host: hostname, URL: &u}
	res, err := r.HttpClient.Do(req.WithContext(ctx))
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return errors.Wrap(identity.ErrDIDNotFound, "did:web HTTP status 404")
	}
	if res.StatusCode != http.StatusOK {
		return errors.Wrapf(identity.ErrDIDResolutionFailed, "did:web HTTP status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return errors.Wrap(identity.ErrDIDResolutionFailed, err.Error())
	}
	return nil
}

func (r *Resolver) resolveDidPlc(ctx context.Context, did syntax.DID, dst any) error {
	u := *r.PlcURL
	u.Path = filepath.Join("/", did.String())
	req := http.Request{
		Method: "GET",
		Host:   u.Host,
		URL:    &u,
	}
	res, err := r.HttpClient.Do(req.WithContext(ctx))
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return errors.Wrap(identity.ErrDIDNotFound, "plc directory HTTP status 404")
	}
	if res.StatusCode != http.StatusOK {
		return errors.Wrapf(identity.ErrDIDResolutionFailed, "plc directory HTTP status %d", res.StatusCode)
	}
	if err = json.NewDecoder(res.Body).Decode(dst); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
