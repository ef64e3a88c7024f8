package xrpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

type RequestType int

const (
	Query RequestType = iota + 1
	Procedure
)

// Client is a minimal XRPC client. Requests go to
// https://<Host>/xrpc/<nsid> carrying the session's bearer token when one
// is attached.
type Client struct {
	Client   *http.Client
	Insecure bool
	Host     string
	Auth     *Auth
}

type Auth struct {
	Handle    string
	AccessJwt string
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := Client{
		Client:   http.DefaultClient,
		Insecure: false,
	}
	for _, o := range opts {
		o(&c)
	}
	return &c
}

func WithInsecure() ClientOption                  { return func(c *Client) { c.Insecure = true } }
func WithJwt(token string) ClientOption           { return func(c *Client) { c.Auth = &Auth{AccessJwt: token} } }
func WithHost(host string) ClientOption           { return func(c *Client) { c.Host = host } }
func WithClient(client *http.Client) ClientOption { return func(c *Client) { c.Client = client } }

func WithEnv() ClientOption {
	return func(c *Client) {
		if v, ok := os.LookupEnv("SWEEP_CLIENT_INSECURE"); ok {
			insecure, err := strconv.ParseBool(v)
			if err == nil {
				c.Insecure = insecure
			}
		}
		if v, ok := os.LookupEnv("SWEEP_CLIENT_JWT"); ok {
			c.Auth = &Auth{AccessJwt: v}
		}
	}
}

func WithURL(uri string) ClientOption {
	u, err := url.Parse(uri)
	if err != nil {
		slog.Error("Failed to parse url in xrpc.WithURL", "error", err)
		return func(c *Client) {}
	}
	return func(c *Client) {
		c.Host = u.Host
		if u.Scheme == "http" {
			c.Insecure = true
		}
		if u.User != nil {
			pw, ok := u.User.Password()
			if ok {
				c.Auth = &Auth{
					Handle:    u.User.Username(),
					AccessJwt: pw,
				}
			}
		}
	}
}

func (c *Client) Ping(ctx context.Context) error {
	u := url.URL{Scheme: "https", Host: c.Host, Path: "/xrpc/_health"}
	if c.Insecure {
		u.Scheme = "http"
	}
	req := http.Request{Method: "GET", Host: c.Host, URL: &u}
	res, err := c.Client.Do(req.WithContext(ctx))
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return errors.Errorf("invalid status code %q", res.Status)
	}
	return nil
}

type Request struct {
	Type        RequestType
	ContentType string
	NSID        string
	Params      url.Values
	Body        io.Reader
}

func (c *Client) Query(ctx context.Context, req *Request) (io.ReadCloser, error) {
	res, err := c.do(ctx, Query, req.ContentType, req.NSID, req.Params, req.Body)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (c *Client) Procedure(ctx context.Context, req *Request) (io.ReadCloser, error) {
	res, err := c.do(ctx, Procedure, req.ContentType, req.NSID, req.Params, req.Body)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

func (c *Client) url(path string, q url.Values) *url.URL {
	u := url.URL{
		Scheme: "https",
		Host:   c.Host,
	}
	if c.Insecure {
		u.Scheme = "http"
	}
	u.Path = filepath.Join("/xrpc", path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return &u
}

func (c *Client) do(ctx context.Context, t RequestType, contentType, ns string, q url.Values, body io.Reader) (*http.Response, error) {
	u := c.url(ns, q)
	req := http.Request{
		Host:   u.Host,
		URL:    u,
		Header: make(http.Header),
	}
	if body != nil {
		req.Body = io.NopCloser(body)
	}
	switch t {
	case Query:
		req.Method = "GET"
	case Procedure:
		req.Method = "POST"
	}
	if len(contentType) > 0 {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Auth != nil {
		req.Header.Set(
			"Authorization",
			"Bearer "+c.Auth.AccessJwt,
		)
	}

	res, err := c.Client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if res.StatusCode >= 400 {
		e := ErrorResponse{Status: res.StatusCode}
		err = json.NewDecoder(res.Body).Decode(&e)
		if err != nil {
			res.Body.Close()
			return nil, e.Wrap(err)
		}
		if err = res.Body.Close(); err != nil {
			return nil, e.Wrap(err)
		}
		return nil, errors.WithStack(&e)
	}
	return res, nil
}
