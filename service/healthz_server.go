package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
)

type HealthzServer struct {
	ctx    context.Context
	server *http.Server
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	server := &http.Server{
		Handler: hdlr,
		Addr:    addr,
	}
	h.server = server
	h.ctx = ctx
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
