package server

import (
	"context"
	"net/http"
	"time"
)

var (
	okBody  = []byte("ok")
	plainCT = []string{"text/plain"}
)

const readyCheckTimeout = 2 * time.Second

type readiness struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

// handleReadyz reports 503 while the catalogue store is unreachable. The cache
// is reported as degraded but never fails readiness: the resolver falls back
// to the store when it is down.
func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	resp := readiness{Status: "ready", Database: checkStatus(ctx, s.deps.ReadyCheck)}
	if s.deps.CacheCheck != nil {
		if resp.Cache = checkStatus(ctx, s.deps.CacheCheck); resp.Cache != "ok" {
			resp.Cache = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Database != "ok" {
		resp.Status = "not ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func checkStatus(ctx context.Context, check ReadyChecker) string {
	if check == nil {
		return "ok"
	}
	if err := check(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}
