package nats

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
)

// BatchSubmitter accepts ownership of a decoded batch
type BatchSubmitter interface {
	Submit(batch *interfaces.Batch) error
}

type Server struct {
	conn      *nats.Conn
	sub       *nats.Subscription
	subject   string
	submitter BatchSubmitter
}

func NewServer(url, subject string, submitter BatchSubmitter) (*Server, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultBatchSubject
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Server{
		conn:      conn,
		subject:   subject,
		submitter: submitter,
	}, nil
}

func (s *Server) Subscribe() error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		HandleBatchMessage(s.submitter, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS: %w", err)
	}

	s.sub = sub
	return nil
}

// HandleBatchMessage decodes data and submits the batch.
// Invalid messages are logged and dropped.
func HandleBatchMessage(submitter BatchSubmitter, data []byte) bool {
	batch, err := DecodeBatch(data)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Dropping invalid batch message")
		return false
	}

	// the batch belongs to a worker once Submit succeeds
	id, txID, jobs := batch.ID, batch.TransactionID, batch.Len()
	if err := submitter.Submit(batch); err != nil {
		logger.Logger.Error().Err(err).Str("batch_id", id).Msg("Failed to submit batch")
		return false
	}

	logger.WithBatchID(id).Debug().
		Str("transaction_id", txID).
		Int("jobs", jobs).
		Msg("Batch received via NATS")
	return true
}

func (s *Server) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
