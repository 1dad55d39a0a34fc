// Package events fans grading events out to Redis pub/sub and NATS so report
// generators and dashboards can react to freshly computed results.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ClassResultsComputedType identifies ClassResultsComputed payloads.
const ClassResultsComputedType = "results.computed"

// ClassResultsComputed is emitted after a class result sheet is recalculated.
type ClassResultsComputed struct {
	SchoolID   uint           `json:"school_id"`
	ClassID    uint           `json:"class_id"`
	SubjectID  uint           `json:"subject_id"`
	TermID     uint           `json:"term_id"`
	Students   int            `json:"students"`
	Complete   int            `json:"complete"`
	PassRate   float64        `json:"pass_rate"`
	Average    float64        `json:"average"`
	Grades     map[string]int `json:"grades"`
	ComputedAt time.Time      `json:"computed_at"`
}

// Envelope wraps every published event.
type Envelope struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Source string          `json:"source"`
	SentAt time.Time       `json:"sent_at"`
	Data   json.RawMessage `json:"data"`
}

// ResultPublisher publishes result events.
type ResultPublisher interface {
	PublishClassResults(ctx context.Context, event ClassResultsComputed) error
}

// Publisher delivers events to whichever transports are configured. With no
// transport it discards events.
type Publisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	now          func() time.Time
	logger       zerolog.Logger
}

// NewPublisher constructs a publisher. Either client may be nil.
func NewPublisher(redisClient *redis.Client, redisChannel string, natsConn *nats.Conn, natsSubject string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		nodeID:       uuid.NewString(),
		now:          time.Now,
		logger:       logger.With().Str("component", "result_publisher").Logger(),
	}
}

// PublishClassResults emits a results.computed event.
func (p *Publisher) PublishClassResults(ctx context.Context, event ClassResultsComputed) error {
	if event.ComputedAt.IsZero() {
		event.ComputedAt = p.now().UTC()
	}
	return p.publish(ctx, ClassResultsComputedType, event)
}

func (p *Publisher) publish(ctx context.Context, eventType string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Envelope{
		ID:     uuid.NewString(),
		Type:   eventType,
		Source: p.nodeID,
		SentAt: p.now().UTC(),
		Data:   body,
	})
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		p.logger.Warn().Err(err).Str("type", eventType).Msg("failed to publish event")
		return err
	}
	return nil
}
