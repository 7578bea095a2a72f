// Package telemetry publishes gantry state over MQTT and accepts
// remote move commands. It gives the scanner a monitoring surface
// without putting any network dependency into the motion core.
package telemetry

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Queue wraps the MQTT client with a fixed topic prefix.
type Queue struct {
	Client      paho.Client
	TopicPrefix string
}

// ClientOptionsFromURL creates ClientOptions from a broker URL of the
// form mqtt://host:port/topic-prefix.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server)
	opts.SetClientID(clientID())
	return opts, topicPrefix, nil
}

// NewQueue creates a Queue from a broker URL.
func NewQueue(serverURL string) (*Queue, error) {
	opts, prefix, err := ClientOptionsFromURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &Queue{Client: paho.NewClient(opts), TopicPrefix: prefix}, nil
}

// Connect connects to the broker and blocks until done.
func (q *Queue) Connect() error {
	token := q.Client.Connect()
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (q *Queue) Close() error {
	q.Client.Disconnect(100)
	return nil
}

// Pub publishes a payload under the topic prefix.
func (q *Queue) Pub(topic string, payload []byte) error {
	token := q.Client.Publish(q.TopicPrefix+topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

// Sub subscribes a topic under the topic prefix.
func (q *Queue) Sub(topic string, handler Handler) error {
	token := q.Client.Subscribe(q.TopicPrefix+topic, 0,
		func(client paho.Client, msg paho.Message) {
			handler(msg.Topic(), msg.Payload())
		})
	token.Wait()
	return token.Error()
}

// clientID derives a stable MQTT client identity for this host.
func clientID() string {
	if id, err := machineid.ID(); err == nil {
		return "gantry-" + id
	}
	return fmt.Sprintf("gantry-%d", os.Getpid())
}
