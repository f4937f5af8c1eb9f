// Command batch extracts every (station, event) pair in a storm catalog
// into hydraulic-model input files.
//
// Usage:
//
//	batch -catalog storms.csv -stations stations.csv -outdir out -format container
//
// Events are processed in catalog order, stations within an event in
// parallel. When -metrics-addr is set, health, readiness, progress, and
// Prometheus metrics endpoints are served for the lifetime of the run;
// when announce brokers are configured (-announce-brokers or
// ANNOUNCE_BROKERS), each completed pair is published to Kafka for
// downstream schedulers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/adcirc-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/adcirc-etl/internal/adapter/kafka"
	"github.com/couchcryptid/adcirc-etl/internal/adcirc"
	"github.com/couchcryptid/adcirc-etl/internal/config"
	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/couchcryptid/adcirc-etl/internal/observability"
	"github.com/couchcryptid/adcirc-etl/internal/pipeline"
	"github.com/couchcryptid/adcirc-etl/internal/sink"
	"github.com/gosuri/uiprogress"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	var (
		catalog     = flag.String("catalog", "", "storm-event catalog CSV")
		stationsCSV = flag.String("stations", "", "station list CSV")
		outDir      = flag.String("outdir", "", "directory for extracted series")
		format      = flag.String("format", cfg.Format, "output format: container, netcdf, csv, or json")
		workers     = flag.Int("workers", cfg.Workers, "concurrent append workers")
		maxDistance = flag.Float64("max-distance", cfg.MaxSnapKM, "max station-to-node snap distance in km")
		datasetName = flag.String("dataset-name", cfg.DatasetName, "file appended to catalog entries that name a run directory")
		rewrite     = flag.String("rewrite", "", "catalog path rewrite as OLD=NEW")
		coldStart   = flag.String("coldstart", "", "override the cold-start instant for every event (RFC 3339)")
		metricsAddr = flag.String("metrics-addr", cfg.MetricsAddr, "address for metrics and progress endpoints (empty disables)")
		progress    = flag.Bool("progress", false, "draw a terminal progress bar")
		jsonStart   = flag.String("json-start", "", "drop JSON points before this instant (RFC 3339)")
		brokers     = flag.String("announce-brokers", strings.Join(cfg.AnnounceBrokers, ","), "comma-separated Kafka brokers for job announcements (empty disables)")
		topic       = flag.String("announce-topic", cfg.AnnounceTopic, "Kafka topic for job announcements")
	)
	flag.Parse()
	cfg.AnnounceBrokers = config.SplitBrokers(*brokers)
	cfg.AnnounceTopic = *topic

	logger := observability.NewLogger(cfg)

	if *catalog == "" || *stationsCSV == "" || *outDir == "" {
		flag.Usage()
		return 2
	}

	f, err := sink.ParseFormat(*format)
	if err != nil {
		logger.Error("bad flag", "flag", "format", "error", err)
		return 2
	}
	coldStartAt, err := parseTimeFlag(*coldStart)
	if err != nil {
		logger.Error("bad flag", "flag", "coldstart", "error", err)
		return 2
	}
	jsonStartAt, err := parseTimeFlag(*jsonStart)
	if err != nil {
		logger.Error("bad flag", "flag", "json-start", "error", err)
		return 2
	}
	rw, err := parseRewrite(*rewrite)
	if err != nil {
		logger.Error("bad flag", "flag", "rewrite", "error", err)
		return 2
	}
	if cfg.Announce() && cfg.AnnounceTopic == "" {
		logger.Error("bad flag", "flag", "announce-topic", "error", errors.New("announce brokers set but topic empty"))
		return 2
	}

	stations, err := domain.LoadStations(*stationsCSV)
	if err != nil {
		logger.Error("failed to load stations", "path", *stationsCSV, "error", err)
		return 1
	}
	events, skipped, err := domain.LoadCatalog(*catalog, domain.CatalogOptions{
		DatasetName: *datasetName,
		Rewrite:     rw,
	})
	if err != nil {
		logger.Error("failed to load catalog", "path", *catalog, "error", err)
		return 1
	}
	if skipped > 0 {
		logger.Warn("catalog rows skipped", "path", *catalog, "skipped", skipped)
	}

	snk, err := sink.New(f, sink.Options{OutDir: *outDir, JSONStart: jsonStartAt})
	if err != nil {
		logger.Error("failed to create sink", "format", f, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var announcer *kafkaadapter.Announcer
	if cfg.Announce() {
		announcer = kafkaadapter.NewAnnouncer(cfg, logger)
		defer func() {
			if err := announcer.Close(); err != nil {
				logger.Error("kafka announcer close error", "error", err)
			}
		}()
		logger.Info("announcing results", "brokers", cfg.AnnounceBrokers, "topic", cfg.AnnounceTopic)
	}

	var bar *uiprogress.Bar
	onResult := func(r domain.JobResult) {
		if bar != nil {
			bar.Incr()
		}
		if announcer != nil {
			// Announce logs its own failures; a lost announcement never
			// fails the run.
			_ = announcer.Announce(ctx, r)
		}
	}

	metrics := observability.NewMetrics()
	extractor := &adcirc.EventExtractor{MaxSnapKM: *maxDistance, ColdStart: coldStartAt}
	d := pipeline.New(extractor, snk, logger, metrics, pipeline.Options{
		Workers:  *workers,
		OnResult: onResult,
	})

	var srv *httpadapter.Server
	if *metricsAddr != "" {
		srv = httpadapter.NewServer(*metricsAddr, d, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	logger.Info("starting batch extraction",
		"events", len(events),
		"stations", len(stations),
		"workers", *workers,
		"format", f,
	)

	if *progress {
		uiprogress.Start()
		bar = uiprogress.AddBar(len(stations) * len(events)).AppendCompleted().PrependElapsed()
	}
	summary, runErr := d.Run(ctx, stations, events)
	if *progress {
		uiprogress.Stop()
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		cancel()
	}
	if err := snk.Close(); err != nil {
		logger.Error("failed to close sink", "error", err)
		return 1
	}

	printSummary(summary)

	if runErr != nil {
		logger.Error("run aborted", "error", runErr)
		return 1
	}
	if !summary.OK() {
		return 1
	}
	return 0
}

func printSummary(s pipeline.Summary) {
	fmt.Printf("%d/%d pairs extracted (%d events x %d stations), %d failed\n",
		s.Succeeded, s.Pairs(), s.Events, s.Stations, len(s.Failed))
	for _, r := range s.Failed {
		fmt.Printf("  FAIL %s / %s: %s\n", r.Station, r.Event, r.Error)
	}
}

func parseRewrite(s string) (domain.PathRewrite, error) {
	if s == "" {
		return domain.PathRewrite{}, nil
	}
	from, to, ok := strings.Cut(s, "=")
	if !ok || from == "" {
		return domain.PathRewrite{}, fmt.Errorf("want OLD=NEW, got %q", s)
	}
	return domain.PathRewrite{From: from, To: to}, nil
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
