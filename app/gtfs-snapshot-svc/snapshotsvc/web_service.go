package snapshotsvc

import (
	"context"
	"encoding/json"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/OpenTransitTools/transitsnap/business/realtime"
)

// defaultHttpHandler answers a bare health check.
type defaultHttpHandler struct{}

func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// statsHandler serves realtime.SnapshotSource.Stats() as JSON. This is
// the engine's only HTTP surface: the query API a router serves against
// CurrentSnapshot() is out of scope here (spec.md §1 lists "HTTP/RPC
// transports" as an external collaborator); this endpoint exists purely
// for operational introspection.
type statsHandler struct {
	log    *logger.Logger
	source *realtime.SnapshotSource
}

func (s *statsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	stats := s.source.Stats()
	jsonData, err := json.Marshal(stats)
	if err != nil {
		s.log.Printf("error marshaling stats to json: %v", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonData); err != nil {
		s.log.Printf("error writing stats response: %s", err)
	}
}

// createServer builds the admin http.Server: "/" for a liveness check,
// "/stats" for engine introspection. Grounded on
// tripupdate.createServer's gorilla/mux wiring and timeout settings.
func createServer(log *logger.Logger, source *realtime.SnapshotSource, httpPort int) *http.Server {
	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/stats", &statsHandler{log: log, source: source})

	return &http.Server{
		Addr:         strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
}

// runWebService starts the admin web service and terminates it on
// shutdownSignal.
func runWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	source *realtime.SnapshotSource,
	httpPort int,
	shutdownSignal chan bool) {
	wg.Add(1)
	defer wg.Done()

	srv := createServer(log, source, httpPort)
	log.Printf("starting admin server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("admin server ListenAndServe ended: %s", err)
		}
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer cancel()

	select {
	case <-shutdownSignal:
		log.Printf("ending admin web service on shutdown signal")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down admin web service: %s", err)
		}
	}
}
