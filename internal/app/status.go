package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/traffic.count/internal/httputil"
	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/pipeline"
	"github.com/banshee-data/traffic.count/internal/stages"
	"github.com/banshee-data/traffic.count/internal/tracking"
)

// Status is the JSON body served on /status.
type Status struct {
	FrameNumber int   `json:"frame_number"`
	Total       int   `json:"total"`
	Zones       []int `json:"zones"`
	ActivePaths int   `json:"active_paths"`
	Finished    bool  `json:"finished"`
	Cancelled   bool  `json:"cancelled"`
}

// liveStatus is the last stage of the pipeline. It copies the tally out of
// the Context so HTTP handlers never touch the Context itself.
type liveStatus struct {
	mu sync.RWMutex
	s  Status
}

func newLiveStatus() *liveStatus {
	return &liveStatus{s: Status{FrameNumber: -1}}
}

func (l *liveStatus) Name() string { return "live_status" }

func (l *liveStatus) Apply(c *pipeline.Context) (*pipeline.Context, error) {
	counts := pipeline.ValueOr(c, pipeline.KeyCounts, tracking.Counts{}).Clone()
	paths := pipeline.ValueOr[[]tracking.Path](c, pipeline.KeyPaths, nil)

	l.mu.Lock()
	l.s.FrameNumber = pipeline.ValueOr(c, pipeline.KeyFrameNumber, l.s.FrameNumber)
	l.s.Total = counts.Total
	l.s.Zones = counts.Zones
	l.s.ActivePaths = len(paths)
	l.mu.Unlock()
	return c, nil
}

func (l *liveStatus) finish(sum pipeline.Summary) {
	l.mu.Lock()
	l.s.Finished = true
	l.s.Cancelled = sum.Cancelled
	l.mu.Unlock()
}

// Snapshot returns a copy of the current status.
func (l *liveStatus) Snapshot() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.s
	s.Zones = append([]int(nil), l.s.Zones...)
	return s
}

func (l *liveStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, l.Snapshot())
}

// statusServer exposes /metrics and /status while a run is in progress.
type statusServer struct {
	srv  *http.Server
	addr string
	done chan struct{}
}

// startServer listens on addr and serves in the background. Close stops it.
func startServer(addr string, metrics *stages.Metrics, status *liveStatus) (*statusServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/status", status)

	s := &statusServer{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr().String(),
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			monitoring.Logf("[Server] serve failed: %v", err)
		}
	}()
	monitoring.Logf("[Server] serving /metrics and /status on %s", s.addr)
	return s, nil
}

// Addr returns the bound address.
func (s *statusServer) Addr() string { return s.addr }

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *statusServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
