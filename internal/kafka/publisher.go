// Package kafka publishes aggregation results to a Kafka topic as CloudEvents.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/pkg/station"
	"github.com/jittakal/onebrc/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*ResultPublisher)(nil)

// EventType is the CloudEvents type of a published station summary.
const EventType = "io.onebrc.station.summary"

// PublisherConfig configures the result publisher.
type PublisherConfig struct {
	BootstrapServers []string
	Topic            string
	// Source is the CloudEvents source attribute; empty means "onebrc".
	Source   string
	Security SecurityConfig
}

// PublisherMetrics receives one outcome per published batch.
type PublisherMetrics interface {
	IncResultsPublished(topic, status string)
}

// StationEvent is the data of one published CloudEvent.
type StationEvent struct {
	Station   string  `json:"station"`
	Min       float64 `json:"min"`
	Mean      float64 `json:"mean"`
	Max       float64 `json:"max"`
	Count     uint64  `json:"count"`
	SumTenths int64   `json:"sum_tenths"`
}

// ResultPublisher implements storage.Writer by sending one CloudEvent per
// station, keyed by station name, in a single batch.
type ResultPublisher struct {
	producer sarama.SyncProducer
	topic    string
	source   string
	runID    string
	logger   *slog.Logger
	metrics  PublisherMetrics
	mu       sync.RWMutex
	closed   bool
}

// NewResultPublisher connects a synchronous producer to the brokers.
func NewResultPublisher(cfg PublisherConfig, logger *slog.Logger, metrics PublisherMetrics) (*ResultPublisher, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = "onebrc-publisher"

	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 100 * time.Millisecond
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Producer.Compression = sarama.CompressionSnappy

	if err := configureSecurity(config, cfg.Security); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}

	producer, err := sarama.NewSyncProducer(cfg.BootstrapServers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("result publisher created",
		"brokers", cfg.BootstrapServers,
		"topic", cfg.Topic,
		"security_protocol", cfg.Security.SecurityProtocol,
	)

	return newResultPublisher(producer, cfg, logger, metrics), nil
}

func newResultPublisher(producer sarama.SyncProducer, cfg PublisherConfig, logger *slog.Logger, metrics PublisherMetrics) *ResultPublisher {
	source := cfg.Source
	if source == "" {
		source = "onebrc"
	}
	return &ResultPublisher{
		producer: producer,
		topic:    cfg.Topic,
		source:   source,
		runID:    uuid.New().String(),
		logger:   logger,
		metrics:  metrics,
	}
}

// RunID identifies every event sent by this publisher.
func (p *ResultPublisher) RunID() string {
	return p.runID
}

// Write publishes rows and returns the number of value bytes sent. path is
// carried on each event as the resultpath extension.
func (p *ResultPublisher) Write(ctx context.Context, rows []station.Summary, path string) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, errors.ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	msgs := make([]*sarama.ProducerMessage, 0, len(rows))
	var size int64
	for _, row := range rows {
		msg, err := p.message(row, path, now)
		if err != nil {
			return 0, p.fail(path, err)
		}
		size += int64(msg.Value.Length())
		msgs = append(msgs, msg)
	}

	if len(msgs) > 0 {
		if err := p.producer.SendMessages(msgs); err != nil {
			return 0, p.fail(path, err)
		}
	}

	if p.metrics != nil {
		p.metrics.IncResultsPublished(p.topic, "success")
	}
	p.logger.Info("results published",
		"topic", p.topic,
		"stations", len(msgs),
		"bytes", size,
		"run_id", p.runID,
	)
	return size, nil
}

func (p *ResultPublisher) message(row station.Summary, path string, now time.Time) (*sarama.ProducerMessage, error) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.New().String())
	event.SetSource(p.source)
	event.SetType(EventType)
	event.SetSubject(row.Name)
	event.SetTime(now)
	event.SetExtension("runid", p.runID)
	if path != "" {
		event.SetExtension("resultpath", path)
	}
	if err := event.SetData(cloudevents.ApplicationJSON, stationEvent(row)); err != nil {
		return nil, fmt.Errorf("failed to set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event for %q: %w", row.Name, err)
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CloudEvent: %w", err)
	}

	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(row.Name),
		Value: sarama.ByteEncoder(eventBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("ce_specversion"), Value: []byte(event.SpecVersion())},
			{Key: []byte("ce_type"), Value: []byte(event.Type())},
			{Key: []byte("ce_source"), Value: []byte(event.Source())},
			{Key: []byte("ce_id"), Value: []byte(event.ID())},
		},
	}, nil
}

func stationEvent(s station.Summary) StationEvent {
	return StationEvent{
		Station:   s.Name,
		Min:       float64(s.Min) / 10,
		Mean:      float64(s.Mean()) / 10,
		Max:       float64(s.Max) / 10,
		Count:     s.Count,
		SumTenths: s.Sum,
	}
}

func (p *ResultPublisher) fail(path string, err error) error {
	if p.metrics != nil {
		p.metrics.IncResultsPublished(p.topic, "failure")
	}
	p.logger.Error("failed to publish results", "topic", p.topic, "error", err)
	return &errors.StorageError{Operation: "kafka publish", Path: path, Err: err}
}

// Close closes the producer. Further writes return errors.ErrWriterClosed.
func (p *ResultPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("result publisher closed", "topic", p.topic)
	return nil
}
