package nats

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

type Client struct {
	conn    *nats.Conn
	subject string
}

func NewClient(url, subject string) (*Client, error) {
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

	return &Client{conn: conn, subject: subject}, nil
}

func (c *Client) PublishBatch(msg *BatchMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal batch message: %w", err)
	}

	if err := c.conn.Publish(c.subject, data); err != nil {
		return fmt.Errorf("failed to publish batch: %w", err)
	}

	return c.conn.Flush()
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
