// Package kafka publishes completed risk profiles to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/industrisk/falloutsim/internal/config"
	"github.com/industrisk/falloutsim/internal/domain"
)

// Publisher produces risk-profile messages. It implements engine.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured risk-profile topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// RiskProfileMessage is the wire payload for a completed simulation.
type RiskProfileMessage struct {
	SimulationID string         `json:"simulation_id"`
	SiteID       string         `json:"site_id"`
	CalamityType string         `json:"calamity_type"`
	Magnitude    float64        `json:"magnitude"`
	Engine       string         `json:"engine,omitempty"`
	CompletedAt  time.Time      `json:"completed_at"`
	Result       *domain.Result `json:"result"`
}

// PublishRiskProfile serializes and publishes one completed task, keyed by
// simulation id.
func (p *Publisher) PublishRiskProfile(ctx context.Context, task domain.Task) error {
	msg, err := serializeToMessage(task)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write risk profile %s: %w", task.ID, err)
	}
	p.logger.Debug("risk profile published", "simulation_id", task.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a completed task into a Kafka message.
func serializeToMessage(task domain.Task) (kafkago.Message, error) {
	payload := RiskProfileMessage{
		SimulationID: task.ID,
		SiteID:       task.SiteID,
		CalamityType: task.Calamity,
		Magnitude:    task.Magnitude,
		Engine:       task.Engine,
		CompletedAt:  task.UpdatedAt,
		Result:       task.Result,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk profile: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(task.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "calamity_type", Value: []byte(task.Calamity)},
			{Key: "completed_at", Value: []byte(task.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
