package daemon

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/confcache/confcache/internal/confcache"
)

const dialTimeout = 500 * time.Millisecond

// Client talks to a running daemon over its Unix socket. It mirrors the
// resolver's API: Get and Refresh return an absent Result rather than an
// error when no config can be resolved; errors mean the daemon itself was
// unreachable or misbehaved.
type Client struct {
	socketPath string
}

// NewClient returns a client for the given socket path.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Probe reports whether something is accepting connections on socketPath.
func Probe(socketPath string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Get resolves the config through the daemon, freshness rules applying.
func (c *Client) Get(ctx context.Context) (confcache.Result, error) {
	resp, err := c.do(ctx, Request{Op: OpGet})
	if err != nil {
		return confcache.Result{}, err
	}
	return toResult(resp), nil
}

// Refresh resolves the config, skipping the freshness check.
func (c *Client) Refresh(ctx context.Context) (confcache.Result, error) {
	resp, err := c.do(ctx, Request{Op: OpRefresh})
	if err != nil {
		return confcache.Result{}, err
	}
	return toResult(resp), nil
}

// Status returns the daemon's cache metadata.
func (c *Client) Status(ctx context.Context) (confcache.Status, error) {
	resp, err := c.do(ctx, Request{Op: OpStatus})
	if err != nil {
		return confcache.Status{}, err
	}
	st := confcache.Status{Exists: resp.Exists, Fresh: resp.Fresh, Size: resp.Size}
	if resp.StoredAtMS != 0 {
		st.StoredAt = time.UnixMilli(resp.StoredAtMS)
		st.Age = time.Duration(resp.AgeMS) * time.Millisecond
	}
	return st, nil
}

// Purge drops the cached payload and timestamp.
func (c *Client) Purge(ctx context.Context) error {
	_, err := c.do(ctx, Request{Op: OpPurge})
	return err
}

func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return Response{}, errors.Wrap(err, "dial config daemon")
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return Response{}, errors.Wrapf(err, "send %s", req.Op)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, errors.Wrapf(err, "read %s response", req.Op)
	}
	if !resp.OK {
		if resp.Error == "" {
			resp.Error = "daemon error"
		}
		return Response{}, errors.New(resp.Error)
	}
	return resp, nil
}

func toResult(resp Response) confcache.Result {
	res := confcache.Result{Payload: resp.Payload, Origin: confcache.Origin(resp.Origin)}
	if res.Origin == "" {
		res.Origin = confcache.OriginNone
	}
	if resp.StoredAtMS != 0 {
		res.StoredAt = time.UnixMilli(resp.StoredAtMS)
	}
	return res
}
