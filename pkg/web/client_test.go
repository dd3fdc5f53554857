package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-treeform/internal/httpc"
	"github.com/teslashibe/go-treeform/pkg/camera"
	"github.com/teslashibe/go-treeform/pkg/morph"
)

func TestClient(t *testing.T) {
	s, d := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		require.NoError(t, <-served)
	}()

	c := NewClient("http://"+ln.Addr().String()+"/", 2*time.Second)

	var st *StatusResponse
	require.Eventually(t, func() bool {
		st, err = c.Status(ctx)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, camera.Idle, st.Mode)
	assert.Equal(t, d.Arena().Count()[morph.KindStar], st.Entities[morph.KindStar])
	require.NotNil(t, st.Music)

	ents, err := c.UploadPhotos(ctx, []PhotoFile{
		{Name: "a.png", ContentType: "image/png", Data: []byte{1, 2}},
		{Name: "b.jpg", ContentType: "image/jpeg", Data: []byte{3}},
	})
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, morph.KindPhoto, ents[0].Kind)
	assert.Equal(t, "b.jpg", ents[1].Name)
	require.NotNil(t, ents[0].UploadID)

	photos, err := c.Photos(ctx)
	require.NoError(t, err)
	assert.Len(t, photos, 2)

	_, err = c.UploadPhotos(ctx, []PhotoFile{{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")}})
	var se *httpc.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusUnsupportedMediaType, se.Code)
}
