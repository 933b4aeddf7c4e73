package nats

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/worker"
)

const validBatch = `{
	"transaction_id": "tx-1",
	"jobs": [
		{"host": "localhost", "port": 1028, "resource": "/accumulate", "verb": "POST", "subscription_id": "sub1", "mime_type": "application/json"},
		{"host": "broker", "port": 1026, "resource": "/v2/op/update", "verb": "POST", "registration": true}
	]
}`

type recordingSubmitter struct {
	batches []*interfaces.Batch
	err     error
}

func (r *recordingSubmitter) Submit(batch *interfaces.Batch) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, batch)
	return nil
}

func TestDecodeBatch(t *testing.T) {
	batch, err := DecodeBatch([]byte(validBatch))
	require.NoError(t, err)

	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, "tx-1", batch.TransactionID)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "localhost:1028/accumulate", batch.Jobs[0].URL())
	assert.True(t, batch.Jobs[1].Registration)
}

func TestDecodeBatch_GeneratesTransactionID(t *testing.T) {
	batch, err := DecodeBatch([]byte(`{"jobs":[{"host":"h","port":80,"verb":"POST","subscription_id":"s"}]}`))
	require.NoError(t, err)
	assert.NotEmpty(t, batch.TransactionID)
}

func TestDecodeBatch_Invalid(t *testing.T) {
	cases := map[string]string{
		"malformed":            `{"jobs": [`,
		"no jobs":              `{"transaction_id": "tx", "jobs": []}`,
		"missing host":         `{"jobs":[{"port":80,"verb":"POST","subscription_id":"s"}]}`,
		"bad port":             `{"jobs":[{"host":"h","port":0,"verb":"POST","subscription_id":"s"}]}`,
		"missing subscription": `{"jobs":[{"host":"h","port":80,"verb":"POST"}]}`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBatch([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestHandleBatchMessage(t *testing.T) {
	sub := &recordingSubmitter{}

	assert.True(t, HandleBatchMessage(sub, []byte(validBatch)))
	assert.False(t, HandleBatchMessage(sub, []byte(`not json`)))
	require.Len(t, sub.batches, 1)

	sub.err = errors.New("pool stopped")
	assert.False(t, HandleBatchMessage(sub, []byte(validBatch)))
}

type releasingRunner struct {
	runs atomic.Int64
}

func (r *releasingRunner) Run(_ context.Context, batch *interfaces.Batch) {
	r.runs.Add(1)
	batch.Release()
}

// Run with -race: the handler must not touch a batch after handing it to the pool.
func TestHandleBatchMessage_DoesNotReadSubmittedBatch(t *testing.T) {
	runner := &releasingRunner{}
	pool := worker.NewPool(runner, 4, 8)
	pool.Start()

	for i := 0; i < 200; i++ {
		require.True(t, HandleBatchMessage(pool, []byte(validBatch)))
	}
	pool.Stop()

	assert.Equal(t, int64(200), runner.runs.Load())
}
