package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lookout/pkg/kafka"
	"lookout/pkg/logging"
)

// Outcome records the final disposition of one trigger event, emitted for
// downstream accounting and review tooling.
type Outcome struct {
	EventID         string    `json:"event_id"`
	RequesterID     string    `json:"requester_id"`
	TargetHandle    string    `json:"target_handle,omitempty"`
	Status          string    `json:"status"`
	Signal          string    `json:"signal,omitempty"`
	TemplateVersion string    `json:"template_version,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	ReplyID         string    `json:"reply_id,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}

type PublisherConfig struct {
	Brokers   []string
	ClusterID string
	Topic     string
	Source    string
	Logger    logging.Logger
}

// Publisher emits analysis outcomes to Kafka. A nil Publisher is valid and
// drops everything, so the pipeline runs unchanged without a broker.
type Publisher struct {
	producer *kafka.Producer
	topic    string
	source   string
	logger   logging.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required for outcome publisher")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "lookout.analysis_outcomes"
	}
	source := cfg.Source
	if source == "" {
		source = "lookout"
	}
	clusterID := cfg.ClusterID
	if clusterID == "" {
		clusterID = "local"
	}
	producer, err := kafka.NewProducer(cfg.Brokers, source, clusterID, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		source:   source,
		logger:   cfg.Logger,
	}, nil
}

func (p *Publisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// Ping checks broker connectivity for health reporting.
func (p *Publisher) Ping(ctx context.Context) error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Ping(ctx)
}

func (p *Publisher) PublishOutcome(outcome Outcome) error {
	if p == nil || p.producer == nil {
		return nil
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal analysis outcome: %w", err)
	}
	err = p.producer.Produce(
		p.topic,
		[]byte(outcome.EventID),
		payload,
		map[string]string{
			"source": p.source,
			"type":   "analysis_outcome",
			"status": outcome.Status,
		},
	)
	if err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.WithFields(logging.Fields{
			"event_id": outcome.EventID,
			"status":   outcome.Status,
			"topic":    p.topic,
		}).Debug("Published analysis outcome")
	}
	return nil
}
