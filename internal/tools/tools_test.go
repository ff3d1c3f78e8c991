package tools

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confcache/confcache/internal/confcache"
)

type fakeService struct {
	res    confcache.Result
	status confcache.Status
	err    error
}

func (f *fakeService) Get(ctx context.Context) (confcache.Result, error) {
	return f.res, f.err
}

func (f *fakeService) Status(ctx context.Context) (confcache.Status, error) {
	return f.status, f.err
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestConfigGetReturnsPayload(t *testing.T) {
	svc := &fakeService{res: confcache.Result{
		Payload: []byte(`{"features":{"beta":true},"name":"app"}`),
		Origin:  confcache.OriginFresh,
	}}
	handler := ConfigGetHandler(svc)

	res, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, `{"features":{"beta":true},"name":"app"}`, textOf(t, res))
}

func TestConfigGetField(t *testing.T) {
	svc := &fakeService{res: confcache.Result{
		Payload: []byte(`{"features":{"beta":true},"name":"app"}`),
		Origin:  confcache.OriginRefreshed,
	}}
	handler := ConfigGetHandler(svc)

	tests := []struct {
		name  string
		field string
		want  string
	}{
		{name: "nested bool", field: "features.beta", want: "true"},
		{name: "top level string", field: "name", want: "app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handler(context.Background(), callRequest(map[string]any{"field": tt.field}))
			require.NoError(t, err)
			assert.False(t, res.IsError)
			assert.Equal(t, tt.want, textOf(t, res))
		})
	}
}

func TestConfigGetFieldMissing(t *testing.T) {
	svc := &fakeService{res: confcache.Result{
		Payload: []byte(`{"name":"app"}`),
		Origin:  confcache.OriginFresh,
	}}
	handler := ConfigGetHandler(svc)

	res, err := handler(context.Background(), callRequest(map[string]any{"field": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "field not found")
}

func TestConfigGetAbsent(t *testing.T) {
	svc := &fakeService{res: confcache.Result{Origin: confcache.OriginNone}}
	handler := ConfigGetHandler(svc)

	res, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "no configuration available")
}

func TestConfigGetServiceError(t *testing.T) {
	svc := &fakeService{err: errors.New("daemon unreachable")}
	handler := ConfigGetHandler(svc)

	res, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "daemon unreachable")
}

func TestConfigGetCanceledContext(t *testing.T) {
	svc := &fakeService{}
	handler := ConfigGetHandler(svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := handler(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestConfigStatus(t *testing.T) {
	t.Run("cached and fresh", func(t *testing.T) {
		svc := &fakeService{status: confcache.Status{
			Exists:   true,
			StoredAt: time.Now().Add(-time.Minute),
			Age:      time.Minute,
			Fresh:    true,
			Size:     42,
		}}
		handler := ConfigStatusHandler(svc)

		res, err := handler(context.Background(), callRequest(nil))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		text := textOf(t, res)
		assert.Contains(t, text, "stored")
		assert.Contains(t, text, "fresh")
	})

	t.Run("stale", func(t *testing.T) {
		svc := &fakeService{status: confcache.Status{
			Exists:   true,
			StoredAt: time.Now().Add(-time.Hour),
			Age:      time.Hour,
			Fresh:    false,
			Size:     42,
		}}
		handler := ConfigStatusHandler(svc)

		res, err := handler(context.Background(), callRequest(nil))
		require.NoError(t, err)
		assert.Contains(t, textOf(t, res), "stale")
	})

	t.Run("empty cache", func(t *testing.T) {
		svc := &fakeService{}
		handler := ConfigStatusHandler(svc)

		res, err := handler(context.Background(), callRequest(nil))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Contains(t, textOf(t, res), "No cached configuration")
	})

	t.Run("service error", func(t *testing.T) {
		svc := &fakeService{err: errors.New("daemon unreachable")}
		handler := ConfigStatusHandler(svc)

		res, err := handler(context.Background(), callRequest(nil))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}
