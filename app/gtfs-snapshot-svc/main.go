package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"

	"github.com/OpenTransitTools/transitsnap/app/gtfs-snapshot-svc/snapshotsvc"
	"github.com/OpenTransitTools/transitsnap/business/data/gtfs"
	"github.com/OpenTransitTools/transitsnap/business/realtime"
	"github.com/OpenTransitTools/transitsnap/business/realtime/gtfsmodel"
	"github.com/OpenTransitTools/transitsnap/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "GTFS_SNAPSHOT : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		NATS struct {
			URL                       string `conf:"default:nats://0.0.0.0:4222"`
			ScheduleUpdateSubject     string `conf:"default:gtfs.tripupdate"`
			EstimatedTimetableSubject string `conf:"default:siri.estimatedtimetable"`
		}
		Feed struct {
			Id       string `conf:"default:trimet"`
			Timezone string `conf:"default:America/Los_Angeles"`
		}
		Snapshot struct {
			MaxFrequencySeconds       int    `conf:"default:5"`
			PurgeExpiredAtCommit      bool   `conf:"default:true"`
			PurgeIntervalSeconds      int    `conf:"default:3600"`
			BackwardsDelayPropagation string `conf:"default:REQUIRED_NO_DATA"`
		}
		Web struct {
			Port int `conf:"default:5000"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Maintain a realtime timetable snapshot engine over a static gtfs schedule"
	const prefix = "SNAPSHOT"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	log.Println("main: Initializing database support")
	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		if err := db.Close(); err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	dataSet, err := gtfs.GetLatestDataSet(db)
	if err != nil {
		return fmt.Errorf("loading latest gtfs dataset: %w", err)
	}
	log.Printf("main: using gtfs dataset %s", dataSet)

	loc, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		return fmt.Errorf("loading feed timezone %q: %w", cfg.Feed.Timezone, err)
	}

	model, err := gtfsmodel.NewModel(db, cfg.Feed.Id, dataSet, loc)
	if err != nil {
		return fmt.Errorf("loading static transit model: %w", err)
	}

	log.Println("main: connecting to nats")
	natsConn, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}
	defer natsConn.Close()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	svcCfg := snapshotsvc.Config{
		RealtimeConfig: realtime.Config{
			MaxSnapshotFrequency:      time.Duration(cfg.Snapshot.MaxFrequencySeconds) * time.Second,
			PurgeExpiredDataAtCommit:  cfg.Snapshot.PurgeExpiredAtCommit,
			BackwardsDelayPropagation: parseBackwardsDelayPropagation(cfg.Snapshot.BackwardsDelayPropagation),
		},
		FeedId:                    cfg.Feed.Id,
		ScheduleUpdateSubject:     cfg.NATS.ScheduleUpdateSubject,
		EstimatedTimetableSubject: cfg.NATS.EstimatedTimetableSubject,
		PurgeIntervalSeconds:      cfg.Snapshot.PurgeIntervalSeconds,
		HttpPort:                  cfg.Web.Port,
	}

	snapshotsvc.StartServices(log, svcCfg, model, natsConn, shutdown)
	return nil
}

// parseBackwardsDelayPropagation maps the configured policy name onto
// realtime.BackwardsDelayPropagation, falling back to the conservative
// REQUIRED_NO_DATA default on an unrecognized value.
func parseBackwardsDelayPropagation(name string) realtime.BackwardsDelayPropagation {
	switch name {
	case "REQUIRED":
		return realtime.Required
	case "ALWAYS":
		return realtime.Always
	default:
		return realtime.RequiredNoData
	}
}
