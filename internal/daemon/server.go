package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/confcache/confcache/internal/confcache"
)

// Server answers resolver requests on a listener. Concurrent get/refresh
// requests are collapsed through singleflight so a burst of clients causes
// at most one upstream fetch; each client still receives the full result.
type Server struct {
	fetcher *confcache.Fetcher
	store   confcache.Store
	sf      singleflight.Group
}

// NewServer wires a resolver and its store. The store is only needed for
// the purge op.
func NewServer(fetcher *confcache.Fetcher, store confcache.Store) *Server {
	return &Server{fetcher: fetcher, store: store}
}

// Serve accepts connections until the listener closes. Each connection may
// issue any number of request/response exchanges.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.WithError(err).Warn("accept failed")
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		resp := s.dispatch(ctx, req)
		if err := enc.Encode(&resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpGet:
		return s.resolve(ctx, false)
	case OpRefresh:
		return s.resolve(ctx, true)
	case OpStatus:
		return s.status(ctx)
	case OpPurge:
		return s.purge(ctx)
	default:
		return Response{Error: "unknown op: " + req.Op}
	}
}

func (s *Server) resolve(ctx context.Context, force bool) Response {
	key := OpGet
	if force {
		key = OpRefresh
	}
	v, _, shared := s.sf.Do(key, func() (any, error) {
		if force {
			return s.fetcher.Refresh(ctx), nil
		}
		return s.fetcher.Get(ctx), nil
	})
	if shared {
		log.Debug("coalesced concurrent config request")
	}
	res := v.(confcache.Result)

	// The resolver serves an externally corrupted payload as-is, but a
	// non-JSON payload cannot ride in a RawMessage response.
	if len(res.Payload) > 0 && !json.Valid(res.Payload) {
		log.Warnf("cached payload is not valid JSON, %d bytes", len(res.Payload))
		return Response{Error: "cached payload is not valid JSON"}
	}

	resp := Response{OK: true, Origin: string(res.Origin), Payload: res.Payload}
	if !res.StoredAt.IsZero() {
		resp.StoredAtMS = res.StoredAt.UnixMilli()
	}
	return resp
}

func (s *Server) status(ctx context.Context) Response {
	st := s.fetcher.Status(ctx)
	resp := Response{OK: true, Exists: st.Exists, Fresh: st.Fresh, Size: st.Size}
	if !st.StoredAt.IsZero() {
		resp.StoredAtMS = st.StoredAt.UnixMilli()
		resp.AgeMS = st.Age.Milliseconds()
	}
	return resp
}

func (s *Server) purge(ctx context.Context) Response {
	if err := s.store.Delete(ctx, confcache.PayloadKey, confcache.StoredAtKey); err != nil {
		return Response{Error: err.Error()}
	}
	return Response{OK: true}
}
