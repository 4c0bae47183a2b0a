package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	subject string
	data    []byte
}

func TestNATSPublisherPublish(t *testing.T) {
	var got []captured
	p := &NATSPublisher{
		subject: "runs.test",
		publish: func(_ context.Context, subject string, data []byte) error {
			got = append(got, captured{subject, data})
			return nil
		},
	}

	err := p.Publish(context.Background(), RunSummary{RunID: "r1", Outcome: "success", Builds: 2, Routes: 4})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "runs.test", got[0].subject)

	var decoded RunSummary
	require.NoError(t, json.Unmarshal(got[0].data, &decoded))
	assert.Equal(t, "r1", decoded.RunID)
	assert.Equal(t, 4, decoded.Routes)
	assert.False(t, decoded.Timestamp.IsZero())
	assert.NoError(t, p.Close())
}

func TestNATSPublisherKeepsTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	var data []byte
	p := &NATSPublisher{subject: DefaultSubject, publish: func(_ context.Context, _ string, d []byte) error {
		data = d
		return nil
	}}
	require.NoError(t, p.Publish(context.Background(), RunSummary{RunID: "r", Timestamp: ts}))

	var decoded RunSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, ts.Equal(decoded.Timestamp))
}

func TestNATSPublisherError(t *testing.T) {
	p := &NATSPublisher{subject: DefaultSubject, publish: func(context.Context, string, []byte) error {
		return errors.New("no responders")
	}}
	err := p.Publish(context.Background(), RunSummary{RunID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no responders")
}

func TestNewNATSPublisherRequiresURL(t *testing.T) {
	_, err := NewNATSPublisher(Options{})
	assert.Error(t, err)
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	_, err := NewNATSPublisher(Options{URL: "nats://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), RunSummary{}))
	assert.NoError(t, p.Close())
}
