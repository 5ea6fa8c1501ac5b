package main

import (
	"net/http"
	"strings"
	"time"

	"etsy_importer/internal/metrics"
)

type triggerer interface {
	Trigger() bool
}

// newServer exposes metrics, the manual sync trigger and the stored media.
func newServer(addr string, sched triggerer, mediaRoot, publicURL string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /sync", syncHandler(sched))

	if prefix := strings.TrimRight(publicURL, "/"); strings.HasPrefix(prefix, "/") {
		mux.Handle("GET "+prefix+"/", http.StripPrefix(prefix, http.FileServer(http.Dir(mediaRoot))))
	}

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func syncHandler(sched triggerer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sched.Trigger() {
			http.Error(w, "sync already requested", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("sync requested\n"))
	}
}
