package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	drepo "github.com/y2kjoh23-ux/btc-compass-26/internal/domain/repository"
	pkgkafka "github.com/y2kjoh23-ux/btc-compass-26/pkg/kafka"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/util"
)

// SourceKafka marks observations that arrived on the observation topic.
const SourceKafka = "kafka"

// ObservationIngester is satisfied by Dashboard.
type ObservationIngester interface {
	Ingest(ctx context.Context, obs models.Observation) (*models.Snapshot, error)
}

// KafkaObservationHandler consumes observation messages and ingests them.
type KafkaObservationHandler struct {
	topic   string
	ingest  ObservationIngester
	metrics drepo.Metrics
}

func NewKafkaObservationHandler(topic string, ingest ObservationIngester, metrics drepo.Metrics) *KafkaObservationHandler {
	return &KafkaObservationHandler{topic: topic, ingest: ingest, metrics: metrics}
}

func (h *KafkaObservationHandler) Topic() string { return h.topic }

// incoming message schema: {price, timestamp, fngIndex}; timestamp is RFC3339, a date or unix seconds/ms
func (h *KafkaObservationHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Price     float64         `json:"price"`
		Timestamp json.RawMessage `json:"timestamp"`
		FNGIndex  *int            `json:"fngIndex"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode observation: %v", pkgkafka.ErrPermanent, err)
	}

	ts, err := parseTimestamp(m.Timestamp)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}
	fng := 50
	if m.FNGIndex != nil {
		fng = *m.FNGIndex
	}
	if !ts.IsZero() {
		// event time to handling time
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())
	}

	_, err = h.ingest.Ingest(ctx, models.Observation{
		Price:     m.Price,
		Timestamp: ts,
		FearGreed: fng,
		Source:    SourceKafka,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidObservation):
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	default:
		h.metrics.RecordError("consumer_ingest")
		return err
	}
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, ok := util.ParseTime(s)
		if !ok {
			return time.Time{}, fmt.Errorf("timestamp %q: unrecognised format", s)
		}
		return t, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("timestamp %s: expected string or unix time", raw)
	}
	if n > 1e11 { // ms
		n = n / 1000
	}
	return time.Unix(n, 0).UTC(), nil
}

var _ pkgkafka.MessageHandler = (*KafkaObservationHandler)(nil)
