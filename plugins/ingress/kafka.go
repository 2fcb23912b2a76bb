package ingress

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/telemetry"
)

// Kafka is an input consuming a Kafka topic, one message per packet.
// A message value longer than the payload is truncated, a shorter one
// is zero-padded.
type Kafka struct {
	plugin.Base

	brokers []string
	topic   string
	groupID string

	reader *kafka.Reader
}

// NewKafka returns a new Kafka input.
func NewKafka() *Kafka {
	return &Kafka{
		Base: plugin.NewBase(plugin.KindInput, "kafka"),
	}
}

// Configure parses the option set.
//
// Options: "topic" (required), "brokers" (";"-separated list, default
// "localhost:9092"), "group" (consumer group, default "flusso").
func (k *Kafka) Configure(opts plugin.Options) error {
	if !opts.Has("topic") {
		return errors.New(`option "topic" is required`)
	}
	k.topic = opts.String("topic", "")

	k.brokers = strings.Split(opts.String("brokers", "localhost:9092"), ";")
	k.groupID = opts.String("group", "flusso")

	return nil
}

// Start creates the topic reader.
func (k *Kafka) Start(_ context.Context) error {
	k.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  k.groupID,
		Topic:    k.topic,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
	})

	return nil
}

// Stop closes the topic reader.
func (k *Kafka) Stop() error {
	return k.StopOnce(func() error {
		if k.reader == nil {
			return nil
		}

		return k.reader.Close()
	})
}

// Receive blocks for the next message of the topic. The trace carried
// in the message headers, if any, parents the acquisition span.
func (k *Kafka) Receive(ctx context.Context, pkt *packet.Packet) (bool, error) {
	msg, err := k.reader.ReadMessage(ctx)
	if err != nil {
		// The reader returns io.EOF once closed
		if errors.Is(err, io.EOF) {
			return false, nil
		}

		return false, err
	}

	ctx = k.Tel.ExtractTrace(ctx, telemetry.NewKafkaHeaderCarrier(msg.Headers))
	_, span := k.Tel.NewTrace(ctx, "acquire packet")
	defer span.End()

	payload := pkt.Data()
	n := copy(payload, msg.Value)
	clear(payload[n:])

	k.AddPackets(1)

	return true, nil
}

// BitRate is unknown.
func (k *Kafka) BitRate() uint64 { return 0 }

// IsRealTime reports true: production is driven by the broker.
func (k *Kafka) IsRealTime() bool { return true }
