package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/repository"
	pkgkafka "github.com/y2kjoh23-ux/btc-compass-26/pkg/kafka"
)

// Producer is the subset of pkg/kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var _ Producer = (*pkgkafka.Producer)(nil)

// KafkaSnapshotPublisher implements SnapshotPublisher for Kafka.
type KafkaSnapshotPublisher struct {
	producer Producer
	topic    string
}

var _ repository.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)

// NewKafkaSnapshotPublisher creates a publisher writing JSON snapshots keyed by day count,
// so every snapshot of one day lands on the same partition.
func NewKafkaSnapshotPublisher(producer Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

// snapshotMessage is the wire form of a snapshot on the topic.
type snapshotMessage struct {
	Timestamp     time.Time `json:"timestamp"`
	Date          string    `json:"date"`
	Days          int       `json:"days"`
	Price         float64   `json:"price"`
	FNGIndex      int       `json:"fngIndex"`
	Source        string    `json:"source"`
	Standard      float64   `json:"standard"`
	Decaying      float64   `json:"decaying"`
	Cycle         float64   `json:"cycle"`
	Weighted      float64   `json:"weighted"`
	Upper         float64   `json:"upper"`
	Lower         float64   `json:"lower"`
	Sigma         float64   `json:"sigma"`
	Oscillator    float64   `json:"oscillator"`
	OnChainProxy  float64   `json:"onChainProxy"`
	PriceRisk     float64   `json:"priceRisk"`
	SentimentRisk float64   `json:"sentimentRisk"`
	OnChainRisk   float64   `json:"onChainRisk"`
	RiskPercent   float64   `json:"riskPercent"`
	Regime        string    `json:"regime"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toMessage(s *models.Snapshot) snapshotMessage {
	o, c, i := s.Observation, s.Curves, s.Indicators
	return snapshotMessage{
		Timestamp:     o.Timestamp.UTC(),
		Date:          c.Date.Format("2006-01-02"),
		Days:          c.Days,
		Price:         o.Price,
		FNGIndex:      o.FearGreed,
		Source:        o.Source,
		Standard:      c.Standard,
		Decaying:      c.Decaying,
		Cycle:         c.Cycle,
		Weighted:      c.Weighted,
		Upper:         c.Upper,
		Lower:         c.Lower,
		Sigma:         c.Sigma,
		Oscillator:    i.Oscillator,
		OnChainProxy:  i.OnChainProxy,
		PriceRisk:     i.PriceRisk,
		SentimentRisk: i.SentimentRisk,
		OnChainRisk:   i.OnChainRisk,
		RiskPercent:   i.RiskPercent,
		Regime:        string(i.Regime),
		CreatedAt:     s.CreatedAt.UTC(),
	}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s *models.Snapshot) error {
	return p.producer.Publish(ctx, p.topic, []byte(strconv.Itoa(s.Curves.Days)), toMessage(s))
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
