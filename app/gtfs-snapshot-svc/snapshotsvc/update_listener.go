package snapshotsvc

import (
	"encoding/json"
	logger "log"
	"os"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/OpenTransitTools/transitsnap/business/realtime"
)

// runUpdateListener subscribes to both the schedule-based and
// estimated-timetable update subjects and applies every batch to
// source's buffer, publishing a new snapshot per SnapshotSource's
// MaxSnapshotFrequency policy. Grounded directly on
// tripupdate.runTripUpdateListener's NATS ChanSubscribe + JSON decode
// shape, generalized to two subjects instead of one.
func runUpdateListener(
	log *logger.Logger,
	wg *sync.WaitGroup,
	natsConn *nats.Conn,
	source *realtime.SnapshotSource,
	model realtime.TransitModel,
	resolver *realtime.EntityResolver,
	cfg Config,
	shutdownSignal chan bool) {
	wg.Add(1)
	defer wg.Done()

	scheduleCh := make(chan *nats.Msg, 64)
	estimatedCh := make(chan *nats.Msg, 64)

	log.Printf("subscribing to schedule-based updates on subject:%s", cfg.ScheduleUpdateSubject)
	scheduleSub, err := natsConn.ChanSubscribe(cfg.ScheduleUpdateSubject, scheduleCh)
	if err != nil {
		log.Printf("unable to subscribe to %s: %v", cfg.ScheduleUpdateSubject, err)
		os.Exit(1)
	}

	log.Printf("subscribing to estimated-timetable updates on subject:%s", cfg.EstimatedTimetableSubject)
	estimatedSub, err := natsConn.ChanSubscribe(cfg.EstimatedTimetableSubject, estimatedCh)
	if err != nil {
		log.Printf("unable to subscribe to %s: %v", cfg.EstimatedTimetableSubject, err)
		os.Exit(1)
	}

	for {
		select {
		case msg := <-scheduleCh:
			processScheduleBasedMsg(log, msg, source, model, cfg.FeedId, cfg.RealtimeConfig.BackwardsDelayPropagation)
		case msg := <-estimatedCh:
			processEstimatedTimetableMsg(log, msg, source, resolver, model, cfg.FeedId)
		case <-shutdownSignal:
			log.Printf("ending update listener on shutdown signal")
			if err := scheduleSub.Unsubscribe(); err != nil {
				log.Printf("error unsubscribing from %s: %s", cfg.ScheduleUpdateSubject, err)
			}
			if err := estimatedSub.Unsubscribe(); err != nil {
				log.Printf("error unsubscribing from %s: %s", cfg.EstimatedTimetableSubject, err)
			}
			return
		}
	}
}

func processScheduleBasedMsg(log *logger.Logger, msg *nats.Msg, source *realtime.SnapshotSource, model realtime.TransitModel, feedId string, policy realtime.BackwardsDelayPropagation) {
	var updates []realtime.ScheduleBasedTripUpdate
	if err := json.Unmarshal(msg.Data, &updates); err != nil {
		log.Printf("error parsing schedule-based trip update batch: %s, payload:%s", err, string(msg.Data))
		return
	}
	result := realtime.ApplyScheduleBasedBatch(source.Buffer(), model, feedId, updates, policy)
	logUpdateResult(log, "schedule-based", result)
	if snapshot := source.AfterApply(); snapshot != nil {
		log.Printf("published snapshot with %d patterns", snapshot.PatternCount())
	}
}

func processEstimatedTimetableMsg(log *logger.Logger, msg *nats.Msg, source *realtime.SnapshotSource, resolver *realtime.EntityResolver, model realtime.TransitModel, feedId string) {
	var delivery realtime.EstimatedTimetableDelivery
	if err := json.Unmarshal(msg.Data, &delivery); err != nil {
		log.Printf("error parsing estimated timetable delivery: %s, payload:%s", err, string(msg.Data))
		return
	}
	if delivery.FeedId == "" {
		delivery.FeedId = feedId
	}
	result := realtime.ApplyEstimatedTimetableDelivery(source.Buffer(), model, resolver, delivery)
	logUpdateResult(log, "estimated-timetable", result)
	if snapshot := source.AfterApply(); snapshot != nil {
		log.Printf("published snapshot with %d patterns", snapshot.PatternCount())
	}
}

func logUpdateResult(log *logger.Logger, dialect string, result *realtime.UpdateResult) {
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		log.Printf("%s batch: %d applied", dialect, result.Successes)
		return
	}
	log.Printf("%s batch: %d applied, %d warnings, %d errors: %v",
		dialect, result.Successes, len(result.Warnings), len(result.Errors), result.CountByKind())
}
