package telemetry

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ringdrop/internal/acquisition"
	"github.com/relabs-tech/ringdrop/internal/analysis"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes; every other method panics via the nil
// embedded interface.
type fakeClient struct {
	mqtt.Client
	sent []published
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic, retained, payload.([]byte)})
	return doneToken{}
}

func TestFromEventNullsMissingReadings(t *testing.T) {
	msg := FromEvent(acquisition.TrialEvent{Run: 3, Total: 60, File: "f_3.json", Trough: 54.2, Temp: math.NaN(), Hum: 41})

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Nil(t, got["temp"])
	assert.Equal(t, 54.2, got["trough"])
	assert.Equal(t, 41.0, got["hum"])
	assert.Equal(t, 3.0, got["run"])
}

func TestFromResult(t *testing.T) {
	troughs := []float64{54, 54, 54.1, 60, 55, 55, 55, 55}
	res, err := analysis.Analyze(troughs, nil, nil, analysis.Options{BlockSize: 4, Tolerance: 0.3, RangeTolerance: 0.4})
	require.NoError(t, err)
	res.Label = "ring7"

	msg := FromResult(res)
	assert.Equal(t, "ring7", msg.Label)
	assert.Equal(t, 8, msg.Trials)
	require.Len(t, msg.Blocks, 2)
	assert.Equal(t, []int{4}, msg.Blocks[0].Excluded)
	require.NotNil(t, msg.Blocks[1].Mean)
	assert.InDelta(t, 55.0, *msg.Blocks[1].Mean, 1e-9)
	assert.False(t, msg.RangeOK)
	assert.Nil(t, msg.MeanTemp)
	assert.Len(t, msg.Troughs, 8)

	_, err = json.Marshal(msg)
	assert.NoError(t, err)
}

func TestPublisher(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "ringdrop/trial", "ringdrop/summary")

	p.TrialStored(acquisition.TrialEvent{Run: 1, Total: 2, Trough: 54, Temp: 21, Hum: 40})

	res, err := analysis.Analyze([]float64{54, 54}, nil, nil, analysis.Options{BlockSize: 2, Tolerance: 0.3})
	require.NoError(t, err)
	require.NoError(t, p.PublishSummary(res))

	require.Len(t, client.sent, 2)
	assert.Equal(t, "ringdrop/trial", client.sent[0].topic)
	assert.False(t, client.sent[0].retained)
	assert.Equal(t, "ringdrop/summary", client.sent[1].topic)
	assert.True(t, client.sent[1].retained)

	var sum SummaryMessage
	require.NoError(t, json.Unmarshal(client.sent[1].payload, &sum))
	require.NotNil(t, sum.OverallMean)
	assert.Equal(t, 54.0, *sum.OverallMean)
}
