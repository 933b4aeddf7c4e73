package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/mtr002/notify-dispatcher/internal/logger"
	"github.com/mtr002/notify-dispatcher/internal/nats"
)

// publish reads a batch JSON file and hands it to the dispatcher over NATS.
func main() {
	var (
		file    = flag.String("file", "", "path to a JSON batch file (- for stdin)")
		url     = flag.String("nats-url", os.Getenv("NATS_URL"), "NATS server URL")
		subject = flag.String("subject", nats.DefaultBatchSubject, "NATS subject")
	)
	flag.Parse()

	logger.Init("notify-publish", os.Getenv("LOG_LEVEL"))

	if *file == "" {
		logger.Logger.Fatal().Msg("-file is required")
	}

	var data []byte
	var err error
	if *file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*file)
	}
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to read batch file")
	}

	if _, err := nats.DecodeBatch(data); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid batch")
	}

	var msg nats.BatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid batch")
	}

	client, err := nats.NewClient(*url, *subject)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer client.Close()

	if err := client.PublishBatch(&msg); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to publish batch")
	}

	logger.Logger.Info().
		Str("subject", *subject).
		Str("transaction_id", msg.TransactionID).
		Int("jobs", len(msg.Jobs)).
		Msg("Batch published")
}
