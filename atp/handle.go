package atp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// HandleResolver turns a handle into a DID, first through the
// _atproto.<handle> DNS TXT record, then through
// https://<handle>/.well-known/atproto-did.
type HandleResolver struct {
	DNSConfig  *dns.ClientConfig
	HttpClient *http.Client
	Timeout    time.Duration
}

func NewDefaultHandleResolver() (*HandleResolver, error) {
	dnsConfig, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(dnsConfig.Servers) == 0 {
		return nil, errors.New("no dns servers configured")
	}
	return &HandleResolver{
		DNSConfig:  dnsConfig,
		HttpClient: http.DefaultClient,
		Timeout:    time.Second * 5,
	}, nil
}

func (hr *HandleResolver) ResolveHandle(ctx context.Context, handle string) (syntax.DID, error) {
	if hr.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hr.Timeout)
		defer cancel()
	}
	did, dnsErr := hr.resolveDNS(ctx, handle)
	if dnsErr == nil {
		return did, nil
	}
	did, err := hr.resolveWellKnown(ctx, handle)
	if err != nil {
		return "", errors.Wrapf(err, "dns resolution also failed: %v", dnsErr)
	}
	return did, nil
}

func (hr *HandleResolver) resolveDNS(ctx context.Context, handle string) (syntax.DID, error) {
	if !strings.HasPrefix(handle, "_atproto.") {
		handle = fmt.Sprintf("_atproto.%s", handle)
	}
	c := new(dns.Client)
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(handle), dns.TypeTXT)
	m.RecursionDesired = true
	res, _, err := c.ExchangeContext(
		ctx,
		m,
		net.JoinHostPort(hr.DNSConfig.Servers[0], hr.DNSConfig.Port),
	)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if len(res.Answer) == 0 {
		return "", errors.New("empty answer from dns server")
	}
	for _, answer := range res.Answer {
		ans, ok := answer.(*dns.TXT)
		if !ok {
			return "", errors.New("expected TXT request to return a *dns.TXT type")
		}
		did, found := strings.CutPrefix(ans.Txt[0], "did=")
		if !found {
			continue
		}
		resdid, err := syntax.ParseDID(did)
		return resdid, errors.WithStack(err)
	}
	return "", errors.Errorf("failed to find did from %q", handle)
}

func (hr *HandleResolver) resolveWellKnown(ctx context.Context, handle string) (syntax.DID, error) {
	u := &url.URL{
		Scheme: "https",
		Host:   handle,
		Path:   "/.well-known/atproto-did",
	}
	for i := 0; i < 20; i++ {
		req := http.Request{
			Method: "GET",
			Host:   u.Host,
			URL:    u,
		}
		res, err := hr.HttpClient.Do(req.WithContext(ctx))
		if err != nil {
			return "", errors.WithStack(err)
		}
		switch {
		case res.StatusCode == http.StatusNotFound:
			res.Body.Close()
			return "", errors.New(".well-known/atproto-did not found")
		case res.StatusCode >= 300 && res.StatusCode < 400:
			res.Body.Close()
			u, err = url.Parse(res.Header.Get("Location"))
			if err != nil {
				return "", errors.WithStack(err)
			}
			continue
		case res.StatusCode >= 500:
			res.Body.Close()
			return "", errors.Errorf("server failure %d from %q", res.StatusCode, u.Host)
		}
		var buf bytes.Buffer
		_, err = io.Copy(&buf, res.Body)
		if err != nil {
			res.Body.Close()
			return "", errors.WithStack(err)
		}
		if err = res.Body.Close(); err != nil {
			return "", errors.WithStack(err)
		}
		did, err := syntax.ParseDID(strings.TrimSpace(buf.String()))
		return did, errors.WithStack(err)
	}
	return "", errors.New("too many redirects")
}
