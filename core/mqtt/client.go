// Package mqtt defines the broker client the run publisher depends on.
// The Paho implementation lives in infra/mqtt.
package mqtt

import "errors"

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")

// Client publishes payloads to a broker.
type Client interface {
	// Publish sends payload to topic, retrying according to the client
	// settings.
	Publish(topic string, payload []byte) error
	// Disconnect closes the connection.
	Disconnect()
}
