package telemetry

import (
	"encoding/json"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/acquisition"
	"github.com/relabs-tech/ringdrop/internal/analysis"
)

// Publisher sends trial and summary messages to an MQTT broker.
type Publisher struct {
	client       mqtt.Client
	topicTrial   string
	topicSummary string
}

// Options names the broker and topics to publish on.
type Options struct {
	Broker       string
	ClientID     string
	TopicTrial   string
	TopicSummary string
}

// Connect opens the MQTT connection.
func Connect(o Options) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connect %s", o.Broker)
	}
	log.Printf("telemetry: connected to MQTT broker at %s", o.Broker)

	return NewPublisher(client, o.TopicTrial, o.TopicSummary), nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(client mqtt.Client, topicTrial, topicSummary string) *Publisher {
	return &Publisher{client: client, topicTrial: topicTrial, topicSummary: topicSummary}
}

// TrialStored implements acquisition.Observer. Publish errors are logged;
// a broker outage never stops an acquisition.
func (p *Publisher) TrialStored(ev acquisition.TrialEvent) {
	if err := p.publish(p.topicTrial, false, FromEvent(ev)); err != nil {
		log.Printf("telemetry: trial %d: %v", ev.Run, err)
	}
}

// PublishSummary sends the outcome of an analysis as a retained message.
func (p *Publisher) PublishSummary(res *analysis.Result) error {
	return p.publish(p.topicSummary, true, FromResult(res))
}

func (p *Publisher) publish(topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}
	token := p.client.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
