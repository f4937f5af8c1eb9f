package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/adcirc-etl/internal/domain"
	"github.com/couchcryptid/adcirc-etl/internal/observability"
)

// Extractor samples every station's series from one storm event's dataset.
type Extractor interface {
	ExtractEvent(ctx context.Context, event domain.StormEvent, stations []domain.StationPoint) ([]domain.SeriesResult, error)
}

// Appender writes one extracted series to its station's output. Appends for
// distinct stations may run concurrently; the dispatcher serializes appends
// per station.
type Appender interface {
	Append(series domain.MeshTimeSeries) error
}

// Options tune a dispatcher run.
type Options struct {
	// Workers bounds how many station appends run at once.
	Workers int
	// OnResult, when set, observes every completed (station, event) pair.
	// It is called from a single goroutine, in completion order.
	OnResult func(domain.JobResult)
}

// Summary reports a finished run.
type Summary struct {
	Events    int
	Stations  int
	Succeeded int
	// Failed holds the failed pairs in completion order.
	Failed []domain.JobResult
}

// Pairs is the total number of (station, event) pairs the run produced.
func (s Summary) Pairs() int { return s.Succeeded + len(s.Failed) }

// OK reports whether every pair succeeded.
func (s Summary) OK() bool { return len(s.Failed) == 0 }

// Dispatcher walks storm events in catalog order, samples each event's
// dataset in a single pass, and fans the resulting series out to one writer
// goroutine per station. Per-station writers keep container appends in event
// order; a semaphore bounds how many appends run at once. A failing pair is
// recorded and skipped without disturbing the rest of the run.
type Dispatcher struct {
	extractor Extractor
	sink      Appender
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options

	running atomic.Bool
	done    atomic.Int64
	failed  atomic.Int64
	total   atomic.Int64
}

// New creates a Dispatcher with the given stages and observability.
func New(e Extractor, sink Appender, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Dispatcher{
		extractor: e,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil while a run is in flight, or an error describing
// why the service is not ready.
func (d *Dispatcher) CheckReadiness(_ context.Context) error {
	if !d.running.Load() {
		return errors.New("no extraction run in flight")
	}
	return nil
}

// Progress reports completed, failed, and total pair counts for the current
// run.
func (d *Dispatcher) Progress() (done, failed, total int64) {
	return d.done.Load(), d.failed.Load(), d.total.Load()
}

// Run processes every (station, event) pair and blocks until all writers have
// drained. The returned error is non-nil only when the context was cancelled;
// per-pair failures land in the Summary instead.
func (d *Dispatcher) Run(ctx context.Context, stations []domain.StationPoint, events []domain.StormEvent) (Summary, error) {
	summary := Summary{Events: len(events), Stations: len(stations)}
	if len(stations) == 0 || len(events) == 0 {
		d.logger.Info("nothing to do", "stations", len(stations), "events", len(events))
		return summary, nil
	}

	d.total.Store(int64(len(stations) * len(events)))
	d.done.Store(0)
	d.failed.Store(0)
	d.running.Store(true)
	defer d.running.Store(false)
	d.metrics.RunActive.Set(1)
	defer d.metrics.RunActive.Set(0)
	d.logger.Info("run starting",
		"stations", len(stations), "events", len(events), "workers", d.opts.Workers)

	results := make(chan domain.JobResult)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for r := range results {
			d.collect(&summary, r)
		}
	}()

	sem := make(chan struct{}, d.opts.Workers)
	writers := make(map[string]chan domain.MeshTimeSeries, len(stations))
	var wg sync.WaitGroup
	for _, st := range stations {
		if _, ok := writers[st.ID]; ok {
			continue
		}
		ch := make(chan domain.MeshTimeSeries, 1)
		writers[st.ID] = ch
		wg.Add(1)
		go d.writeLoop(ch, sem, results, &wg)
	}

	// Events run sequentially so each dataset is opened and read exactly
	// once; the per-station writers absorb the fan-out.
	var runErr error
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		d.dispatchEvent(ctx, ev, stations, writers, results)
	}

	for _, ch := range writers {
		close(ch)
	}
	wg.Wait()
	close(results)
	<-collectorDone

	d.logger.Info("run complete",
		"pairs", summary.Pairs(), "succeeded", summary.Succeeded, "failed", len(summary.Failed))
	return summary, runErr
}

// dispatchEvent samples one event's dataset and routes each station's series
// to its writer. An extraction failure fails every pair the event would have
// produced.
func (d *Dispatcher) dispatchEvent(ctx context.Context, ev domain.StormEvent, stations []domain.StationPoint, writers map[string]chan domain.MeshTimeSeries, results chan<- domain.JobResult) {
	d.logger.Info("event starting", "event", ev.Name, "dataset", ev.DatasetPath)
	start := domain.Now()
	seriesResults, err := d.extractor.ExtractEvent(ctx, ev, stations)
	d.metrics.EventExtractDuration.Observe(domain.Now().Sub(start).Seconds())
	if err != nil {
		d.logger.Error("event extraction failed", "event", ev.Name, "error", err)
		for _, st := range stations {
			results <- domain.JobResult{
				Station:     st.ID,
				Event:       ev.Name,
				CompletedAt: domain.Now(),
				Error:       fmt.Sprintf("extract: %v", err),
			}
		}
		return
	}

	for _, res := range seriesResults {
		if res.Err != nil {
			var lookupErr *domain.LookupError
			if errors.As(res.Err, &lookupErr) {
				d.metrics.LookupErrors.Inc()
			}
			results <- domain.JobResult{
				Station:     res.Station.ID,
				Event:       ev.Name,
				CompletedAt: domain.Now(),
				Error:       res.Err.Error(),
			}
			continue
		}
		d.metrics.SeriesExtracted.Inc()
		writers[res.Station.ID] <- res.Series
	}
}

// writeLoop is one station's writer: it appends that station's series in
// arrival order, holding a semaphore slot while the sink works.
func (d *Dispatcher) writeLoop(ch <-chan domain.MeshTimeSeries, sem chan struct{}, results chan<- domain.JobResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for series := range ch {
		sem <- struct{}{}
		d.metrics.ActiveWorkers.Inc()
		start := domain.Now()
		err := d.sink.Append(series)
		elapsed := domain.Now().Sub(start)
		d.metrics.ActiveWorkers.Dec()
		d.metrics.TaskDuration.Observe(elapsed.Seconds())
		<-sem

		result := domain.JobResult{
			Station:     series.StationID,
			Event:       series.Event,
			Records:     1,
			Duration:    elapsed,
			CompletedAt: domain.Now(),
		}
		if err != nil {
			result.Records = 0
			result.Error = err.Error()
		}
		results <- result
	}
}

// collect folds one result into the summary and fires the observer. It runs
// on the collector goroutine only.
func (d *Dispatcher) collect(summary *Summary, r domain.JobResult) {
	d.done.Add(1)
	if r.OK() {
		summary.Succeeded++
		d.metrics.RecordsWritten.Inc()
	} else {
		summary.Failed = append(summary.Failed, r)
		d.failed.Add(1)
		d.metrics.TaskErrors.Inc()
		d.logger.Warn("pair failed", "station", r.Station, "event", r.Event, "error", r.Error)
	}
	if d.opts.OnResult != nil {
		d.opts.OnResult(r)
	}
}
