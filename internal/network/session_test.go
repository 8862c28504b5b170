package network

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/vrc3d/internal/engine/camera"
	"github.com/Faultbox/vrc3d/internal/game/entity"
)

// hostServer serves the REST API, the cable endpoint and one avatar photo
// from a single host, the way the real service does.
func hostServer(t *testing.T, frames ...string) (host string, a *api) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 40, 40))))

	a = &api{bots: `[]`, fail: map[string]int{}}
	var conns atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", a.serve)
	mux.Handle("/cable", cableHandler(&conns, frames...))
	mux.HandleFunc("/photos/9.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://"), a
}

func sessionConfig(t *testing.T, host string) SessionConfig {
	return SessionConfig{
		Host:           host,
		Secure:         false,
		Credentials:    Credentials{AppID: "id", AppSecret: "secret"},
		Identity:       BotIdentity{Name: "Extra-dimensional Avatar", Emoji: "👾"},
		RequestTimeout: 5 * time.Second,
		ReconnectDelay: 10 * time.Millisecond,
		PhotoDir:       t.TempDir(),
		PhotoSize:      16,
	}
}

func TestSessionEndToEnd(t *testing.T) {
	host, a := hostServer(t,
		`{"identifier":"{\"channel\":\"ApiChannel\"}","type":"confirm_subscription"}`,
		`{"identifier":"{\"channel\":\"ApiChannel\"}","message":{"type":"entity","payload":{"id":9,"type":"Avatar","pos":{"x":1,"y":1},"image_path":"/photos/9.png"}}}`,
	)

	s, err := NewSession(sessionConfig(t, host))
	require.NoError(t, err)

	inbound := make(chan entity.Entity, 4)
	outbound := make(chan Message, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	s.Start(gctx, g, inbound, outbound)

	got := receive(t, inbound, 1)
	avatar, ok := got[0].(*entity.Avatar)
	require.True(t, ok)
	require.NotNil(t, avatar.Photo)
	assert.Equal(t, image.Rect(0, 0, 16, 16), avatar.Photo.Bounds())
	assert.True(t, s.Photos.Has(9))

	outbound <- PositionUpdate{Pose: camera.GridPose{X: 1, Y: 2, Direction: camera.Up}}
	close(outbound)

	// The worker drains the queue and exits on close; the subscription
	// needs the cancel.
	require.Eventually(t, func() bool {
		return len(a.Requests()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, g.Wait())

	reqs := a.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "GET", reqs[0].Method)
	assert.Equal(t, "/api/bots", reqs[0].Path)
	assert.Equal(t, "POST", reqs[1].Method)
	assert.Equal(t, map[string]any{
		"name":  "Extra-dimensional Avatar",
		"emoji": "👾",
		"x":     1.0,
		"y":     2.0,
	}, reqs[1].Body["bot"])
}

func TestSessionRejectedStreamDoesNotFail(t *testing.T) {
	host, _ := hostServer(t, `{"type":"reject_subscription"}`)

	s, err := NewSession(sessionConfig(t, host))
	require.NoError(t, err)

	outbound := make(chan Message)
	close(outbound)
	var g errgroup.Group
	s.Start(context.Background(), &g, make(chan entity.Entity, 1), outbound)

	assert.NoError(t, g.Wait())
}

func TestNewSessionErrors(t *testing.T) {
	cfg := sessionConfig(t, "")
	_, err := NewSession(cfg)
	assert.Error(t, err)

	cfg = sessionConfig(t, "localhost")
	cfg.PhotoSize = 0
	_, err = NewSession(cfg)
	assert.Error(t, err)
}
