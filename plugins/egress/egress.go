// Package egress provides the builtin output plugins: packet sinks
// discarding, writing to files, producing to Kafka and timing packets
// into QuestDB.
package egress

import "github.com/FerroO2000/flusso/plugin"

// Register registers every builtin output plugin into the registry.
func Register(reg *plugin.Registry) {
	reg.RegisterOutput("drop", func() plugin.Output { return NewDrop() })
	reg.RegisterOutput("file", func() plugin.Output { return NewFile() })
	reg.RegisterOutput("kafka", func() plugin.Output { return NewKafka() })
	reg.RegisterOutput("questdb", func() plugin.Output { return NewQuestDB() })
}
