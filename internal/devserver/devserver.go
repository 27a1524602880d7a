// Package devserver runs the live-reload endpoint: websocket clients connect
// to /events and receive a payload after every dispatched rebuild or remove
// batch.
package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sectionforge/sectionforge/internal/logging"
)

type changeType string

const (
	changeTypeRebuild changeType = "rebuild"
	changeTypeRemove  changeType = "remove"
)

type payload struct {
	ChangeType changeType `json:"changeType"`
	Sections   []string   `json:"sections,omitempty"`
	Paths      []string   `json:"paths,omitempty"`
}

// Server broadcasts build outcomes to connected websocket clients. It
// implements watch.Notifier. Notifications are safe from any goroutine and
// at any point in the server's lifecycle; with no clients they are no-ops.
type Server struct {
	log  *slog.Logger
	port int
	hub  *hub
}

func New(port int, log *slog.Logger) *Server {
	if log == nil {
		log = logging.New("serve")
	}
	return &Server{
		log:  log,
		port: port,
		hub:  newHub(),
	}
}

// Run serves until ctx is done, then closes every client and shuts the
// listener down.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		s.handleEvents(w, r)
	})

	httpSrv := &http.Server{
		Addr:    ":" + strconv.Itoa(s.port),
		Handler: mux,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.log.Info("reload server started", "port", s.port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("reload server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Rebuilt broadcasts the names of sections just recompiled.
func (s *Server) Rebuilt(sections []string) {
	s.hub.broadcast(payload{ChangeType: changeTypeRebuild, Sections: sections})
}

// Removed broadcasts the destination paths just deleted.
func (s *Server) Removed(paths []string) {
	s.hub.broadcast(payload{ChangeType: changeTypeRemove, Paths: paths})
}
