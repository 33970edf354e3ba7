// Package snapshotsvc wires business/realtime.SnapshotSource into a
// running service: a NATS listener that feeds update batches to the
// engine, a background loop that periodically purges expired data and
// logs engine stats, and an admin-only web service for introspection.
package snapshotsvc

import (
	logger "log"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/OpenTransitTools/transitsnap/business/realtime"
)

// Config holds the tunables StartServices needs beyond what
// realtime.Config already covers.
type Config struct {
	RealtimeConfig            realtime.Config
	FeedId                    string
	ScheduleUpdateSubject     string
	EstimatedTimetableSubject string
	PurgeIntervalSeconds      int
	HttpPort                  int
}

// StartServices brings up the background maintenance loop, the NATS
// update listener, and the admin web service; exits on shutdownSignal.
// Mirrors tripupdate.StartServices's goroutine-per-subsystem-plus-
// shutdown-channel shape.
func StartServices(log *logger.Logger,
	cfg Config,
	model realtime.TransitModel,
	natsConn *nats.Conn,
	shutdownSignal chan os.Signal) {

	wg := sync.WaitGroup{}

	source := realtime.NewSnapshotSource(cfg.RealtimeConfig, log, nil)
	resolver := realtime.NewEntityResolver(model, nil)

	backgroundLoopShutdown := make(chan bool, 1)
	updateListenerShutdown := make(chan bool, 1)
	webServiceShutdown := make(chan bool, 1)

	go runBackgroundLoop(log, &wg, source, backgroundLoopShutdown, cfg.PurgeIntervalSeconds)
	go runUpdateListener(log, &wg, natsConn, source, model, resolver, cfg, updateListenerShutdown)
	go runWebService(log, &wg, source, cfg.HttpPort, webServiceShutdown)

	select {
	case <-shutdownSignal:
		log.Printf("Exiting on shutdown signal, shutting down subroutines")
		backgroundLoopShutdown <- true
		updateListenerShutdown <- true
		webServiceShutdown <- true
		wg.Wait()
		log.Printf("Subroutines shut down, exiting gtfs-snapshot-svc")
	}
}

// runBackgroundLoop periodically purges realtime data for service dates
// that have fully elapsed and flushes any pending commit, so a quiet
// feed still eventually publishes accumulated changes.
func runBackgroundLoop(log *logger.Logger,
	wg *sync.WaitGroup,
	source *realtime.SnapshotSource,
	shutdownSignal chan bool,
	purgeIntervalSeconds int) {
	wg.Add(1)
	defer wg.Done()

	loopDuration := time.Duration(purgeIntervalSeconds) * time.Second
	sleepChan := make(chan bool)

	for {
		go func() {
			time.Sleep(loopDuration)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("Exiting background loop on shutdown signal")
			return
		case <-sleepChan:
		}

		yesterday := realtime.NewServiceDate(time.Now().AddDate(0, 0, -1))
		removedAny, err := source.PurgeExpiredData(yesterday)
		if err != nil {
			log.Printf("error purging expired realtime data: %s", err)
			continue
		}
		if removedAny {
			log.Printf("purged expired realtime data on or before %s", yesterday)
		}
		if snapshot := source.FlushBuffer(); snapshot != nil {
			log.Printf("flushed snapshot with %d patterns", snapshot.PatternCount())
		}
	}
}
