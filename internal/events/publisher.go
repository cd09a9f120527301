// Package events publishes persisted call records to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"call-review-go/internal/config"
	"call-review-go/internal/logger"
	"call-review-go/internal/metrics"
	"call-review-go/internal/types"
)

// RecordEvent is the message body for a persisted record. The transcript is
// left out to keep messages small.
type RecordEvent struct {
	Type              string          `json:"type"`
	RecordID          string          `json:"record_id"`
	FileName          string          `json:"file_name"`
	SalespersonName   string          `json:"salesperson_name"`
	ProspectName      string          `json:"prospect_name"`
	EstimatedDuration string          `json:"estimated_duration"`
	Evaluation        types.Scorecard `json:"evaluation"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Publisher writes record events to one topic. With Kafka disabled it only
// logs the events.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	log     *logger.Logger
	metrics *metrics.Metrics
}

func New(cfg config.KafkaConfig, log *logger.Logger, m *metrics.Metrics) *Publisher {
	log = log.Component("events")
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info("kafka disabled, using log-only mode")
		return &Publisher{topic: cfg.Topic, log: log, metrics: m}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}
	log.WithField("brokers", cfg.Brokers).WithField("topic", cfg.Topic).Info("kafka publisher initialized")
	return &Publisher{writer: writer, topic: cfg.Topic, enabled: true, log: log, metrics: m}
}

// PublishRecord sends the record keyed by its ID.
func (p *Publisher) PublishRecord(ctx context.Context, rec types.CallRecord) error {
	payload, err := json.Marshal(RecordEvent{
		Type:              "call_record.created",
		RecordID:          rec.ID,
		FileName:          rec.FileName,
		SalespersonName:   rec.SalespersonName,
		ProspectName:      rec.ProspectName,
		EstimatedDuration: rec.EstimatedDuration,
		Evaluation:        rec.Evaluation,
		CreatedAt:         rec.CreatedAt,
	})
	if err != nil {
		return err
	}

	log := p.log.WithField("topic", p.topic).WithField("record_id", rec.ID)
	if !p.enabled || p.writer == nil {
		log.WithField("payload", string(payload)).Debug("record event (log-only)")
		p.metrics.Published(nil)
		return nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(rec.ID),
		Value:   payload,
		Headers: []kafka.Header{{Key: "eventType", Value: []byte("call_record.created")}},
	})
	p.metrics.Published(err)
	if err != nil {
		log.WithField("error", err.Error()).Error("failed to write record event")
		return err
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
