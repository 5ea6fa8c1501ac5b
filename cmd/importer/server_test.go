package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTrigger struct {
	accept bool
	calls  int
}

func (s *stubTrigger) Trigger() bool {
	s.calls++
	return s.accept
}

func TestServer_SyncTrigger(t *testing.T) {
	trigger := &stubTrigger{accept: true}
	srv := httptest.NewServer(newServer(":0", trigger, t.TempDir(), "/uploads").Handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sync", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, trigger.calls)
}

func TestServer_SyncTriggerPending(t *testing.T) {
	trigger := &stubTrigger{accept: false}
	srv := httptest.NewServer(newServer(":0", trigger, t.TempDir(), "/uploads").Handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sync", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_SyncRequiresPost(t *testing.T) {
	trigger := &stubTrigger{accept: true}
	srv := httptest.NewServer(newServer(":0", trigger, t.TempDir(), "/uploads").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sync")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, 0, trigger.calls)
}

func TestServer_Metrics(t *testing.T) {
	srv := httptest.NewServer(newServer(":0", &stubTrigger{}, t.TempDir(), "/uploads").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServer_ServesMedia(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "42"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "42", "mug.jpg"), []byte("jpeg"), 0o644))

	srv := httptest.NewServer(newServer(":0", &stubTrigger{}, root, "/uploads/").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/uploads/42/mug.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg", string(body))
}
