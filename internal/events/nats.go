package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
	"github.com/rs/zerolog/log"
)

const subjectPrefix = "courtside."

type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSRelay publishes facts to NATS Streaming under courtside.<type>.
type NATSRelay struct {
	pub  Publisher
	conn stan.Conn
}

type NATSConfig struct {
	URL       string
	ClusterID string
	ClientID  string
}

// DialNATS connects to NATS Streaming with a random suffix on the client id.
func DialNATS(cfg NATSConfig) (*NATSRelay, error) {
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])
	conn, err := stan.Connect(cfg.ClusterID, clientID, stan.NatsURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}
	log.Info().
		Str("url", cfg.URL).
		Str("cluster", cfg.ClusterID).
		Str("client", clientID).
		Msg("Connected to NATS Streaming")
	return &NATSRelay{pub: conn, conn: conn}, nil
}

// NewNATSRelay wraps an existing publisher.
func NewNATSRelay(pub Publisher) *NATSRelay {
	return &NATSRelay{pub: pub}
}

func Subject(t Type) string {
	return subjectPrefix + string(t)
}

func (r *NATSRelay) Emit(ctx context.Context, fact Fact) {
	logger := log.Ctx(ctx).With().
		Str("component", "events").
		Str("fact_id", fact.ID).
		Str("fact_type", string(fact.Type)).
		Logger()

	payload, err := json.Marshal(fact)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal fact")
		return
	}
	if err := r.pub.Publish(Subject(fact.Type), payload); err != nil {
		logger.Error().Err(err).Msg("Failed to publish fact")
		return
	}
	logger.Debug().Msg("Published fact")
}

func (r *NATSRelay) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
