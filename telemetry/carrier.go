package telemetry

import (
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
)

var _ propagation.TextMapCarrier = (*KafkaHeaderCarrier)(nil)

// KafkaHeaderCarrier adapts Kafka record headers to the
// OpenTelemetry text map carrier interface, so traces can be
// propagated through the kafka input/output stages.
type KafkaHeaderCarrier struct {
	headers []kafka.Header
}

// NewKafkaHeaderCarrier returns a new carrier wrapping the given headers.
func NewKafkaHeaderCarrier(headers []kafka.Header) *KafkaHeaderCarrier {
	return &KafkaHeaderCarrier{headers: headers}
}

// Get returns the value of the given key.
func (c *KafkaHeaderCarrier) Get(key string) string {
	for _, header := range c.headers {
		if header.Key == key {
			return string(header.Value)
		}
	}

	return ""
}

// Set sets the value of the given key, overwriting a previous value.
func (c *KafkaHeaderCarrier) Set(key, value string) {
	for idx, header := range c.headers {
		if header.Key == key {
			c.headers[idx].Value = []byte(value)
			return
		}
	}

	c.headers = append(c.headers, kafka.Header{
		Key:   key,
		Value: []byte(value),
	})
}

// Keys returns the keys of all the headers.
func (c *KafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, header := range c.headers {
		keys = append(keys, header.Key)
	}

	return keys
}

// Headers returns the wrapped headers.
func (c *KafkaHeaderCarrier) Headers() []kafka.Header {
	return c.headers
}
