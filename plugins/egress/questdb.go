package egress

import (
	"context"
	"time"

	qdb "github.com/questdb/go-questdb-client/v3"

	"github.com/FerroO2000/flusso/packet"
	"github.com/FerroO2000/flusso/plugin"
)

// QuestDB is an output recording the timing of every packet as a table
// row: sequence number, payload size and acquisition timestamp. The
// payload itself is not stored; this sink feeds latency and throughput
// dashboards, not an archive.
type QuestDB struct {
	plugin.Base

	address string
	table   string

	sender qdb.LineSender
}

// NewQuestDB returns a new QuestDB output.
func NewQuestDB() *QuestDB {
	return &QuestDB{
		Base: plugin.NewBase(plugin.KindOutput, "questdb"),
	}
}

// Configure parses the option set.
//
// Options: "address" (server address, default "localhost:9000"),
// "table" (target table, default "packets").
func (q *QuestDB) Configure(opts plugin.Options) error {
	q.address = opts.String("address", "localhost:9000")
	q.table = opts.String("table", "packets")

	return nil
}

// Start creates the line sender.
func (q *QuestDB) Start(ctx context.Context) error {
	sender, err := qdb.NewLineSender(ctx,
		qdb.WithAddress(q.address),
		qdb.WithHttp(),
		qdb.WithAutoFlushRows(75_000),
		qdb.WithRetryTimeout(time.Second),
	)
	if err != nil {
		return err
	}
	q.sender = sender

	return nil
}

// Stop flushes and closes the line sender.
func (q *QuestDB) Stop() error {
	return q.StopOnce(func() error {
		if q.sender == nil {
			return nil
		}

		return q.sender.Close(context.Background())
	})
}

// Send inserts one row for the packet, timestamped at acquisition time.
func (q *QuestDB) Send(ctx context.Context, pkt *packet.Packet) error {
	row := q.sender.Table(q.table).
		Int64Column("sequence", int64(pkt.SequenceNumber())).
		Int64Column("size", int64(pkt.Size()))

	if err := row.At(ctx, pkt.ReceiveTime()); err != nil {
		return err
	}

	q.AddPackets(1)

	return nil
}
