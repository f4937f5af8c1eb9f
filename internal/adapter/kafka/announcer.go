package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/adcirc-etl/internal/config"
	"github.com/couchcryptid/adcirc-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Announcer publishes (station, event) completion results to a Kafka topic
// so downstream hydraulic-model schedulers can react as records land.
type Announcer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAnnouncer creates a Kafka producer for the configured announce topic.
func NewAnnouncer(cfg *config.Config, logger *slog.Logger) *Announcer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.AnnounceBrokers...),
		Topic:        cfg.AnnounceTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Announcer{writer: w, logger: logger}
}

// Announce serializes and publishes one completed pair. Failures are logged
// and returned but never block the run itself.
func (a *Announcer) Announce(ctx context.Context, result domain.JobResult) error {
	msg, err := serializeToMessage(result)
	if err != nil {
		return err
	}
	if err := a.writer.WriteMessages(ctx, msg); err != nil {
		a.logger.Warn("announce failed",
			"station", result.Station, "event", result.Event, "error", err)
		return err
	}
	return nil
}

func (a *Announcer) Close() error {
	return a.writer.Close()
}

// serializeToMessage marshals a JobResult into a Kafka message keyed by
// station, so one station's results stay on one partition in order.
func serializeToMessage(result domain.JobResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize job result: %w", err)
	}
	status := "ok"
	if !result.OK() {
		status = "failed"
	}
	return kafkago.Message{
		Key:   []byte(result.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event", Value: []byte(result.Event)},
			{Key: "status", Value: []byte(status)},
			{Key: "completed_at", Value: []byte(result.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
