package egress

import (
	"context"
	"encoding/binary"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/telemetry"
)

// Kafka is an output producing one Kafka message per packet. The
// message key is the big-endian sequence number, so a partitioned topic
// still orders packets per partition; the active trace is carried in
// the message headers.
type Kafka struct {
	plugin.Base

	brokers []string
	topic   string
	async   bool

	writer *kafka.Writer
}

// NewKafka returns a new Kafka output.
func NewKafka() *Kafka {
	return &Kafka{
		Base: plugin.NewBase(plugin.KindOutput, "kafka"),
	}
}

// Configure parses the option set.
//
// Options: "topic" (required), "brokers" (";"-separated list, default
// "localhost:9092"), "async" (bool, fire-and-forget writes, default true).
func (k *Kafka) Configure(opts plugin.Options) error {
	if !opts.Has("topic") {
		return errors.New(`option "topic" is required`)
	}
	k.topic = opts.String("topic", "")

	k.brokers = strings.Split(opts.String("brokers", "localhost:9092"), ";")

	async, err := opts.Bool("async", true)
	if err != nil {
		return err
	}
	k.async = async

	return nil
}

// Start creates the topic writer.
func (k *Kafka) Start(_ context.Context) error {
	k.writer = &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  k.topic,
		Balancer:               &kafka.RoundRobin{},
		BatchTimeout:           time.Second,
		RequiredAcks:           kafka.RequireNone,
		Async:                  k.async,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}

	return nil
}

// Stop closes the topic writer.
func (k *Kafka) Stop() error {
	return k.StopOnce(func() error {
		if k.writer == nil {
			return nil
		}

		return k.writer.Close()
	})
}

// Send produces the packet to the topic. The payload is cloned: the
// writer may retain the message past the call while the packet gets
// recycled.
func (k *Kafka) Send(ctx context.Context, pkt *packet.Packet) error {
	ctx, span := k.Tel.NewTrace(ctx, "deliver packet")
	defer span.End()

	carrier := telemetry.NewKafkaHeaderCarrier(nil)
	k.Tel.InjectTrace(ctx, carrier)

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, pkt.SequenceNumber())

	msg := kafka.Message{
		Key:   key,
		Value: slices.Clone(pkt.Data()),

		Headers: carrier.Headers(),
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	k.AddPackets(1)

	return nil
}

// IsRealTime reports true: delivery is driven by the broker.
func (k *Kafka) IsRealTime() bool { return true }
