package nats

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
)

const DefaultBatchSubject = "notify.batches"

// BatchMessage is the wire form of a batch handed over by a producer
type BatchMessage struct {
	TransactionID string                        `json:"transaction_id"`
	Jobs          []*interfaces.NotificationJob `json:"jobs" validate:"required,min=1,dive,required"`
}

var validate = validator.New()

// DecodeBatch parses and validates a batch message.
// A missing transaction id is generated.
func DecodeBatch(data []byte) (*interfaces.Batch, error) {
	var msg BatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch message: %w", err)
	}

	if err := validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("invalid batch message: %w", err)
	}

	txID := msg.TransactionID
	if txID == "" {
		txID = uuid.New().String()
	}

	return interfaces.NewBatch(uuid.New().String(), txID, msg.Jobs...), nil
}
