package datarecording

import (
	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/timing"
)

// EventTable is the table recordings are exported to.
const EventTable = "events"

// EventRow is one exported value of a recording.
type EventRow struct {
	NodeID uint64  `nsim_data:"node_id"`
	Model  string  `nsim_data:"model"`
	Step   uint64  `nsim_data:"step"`
	TimeMs float64 `nsim_data:"time_ms"`
	Sender uint64  `nsim_data:"sender"`
	Field  string  `nsim_data:"field"`
	Value  float64 `nsim_data:"value"`
}

// A Source provides read access to the recordings of a kernel.
type Source interface {
	Nodes() ([]kernel.NodeInfo, error)
	Records(id model.ID) ([]model.Record, error)
	Fields(id model.ID) ([]string, error)
	StepToMs(s timing.Step) (float64, error)
}

// An Exporter copies recordings into a DataRecorder. Every record is
// exported once, so Export can be called after each Advance.
type Exporter struct {
	recorder DataRecorder
	exported map[model.ID]int
}

// NewExporter creates an Exporter and the event table.
func NewExporter(recorder DataRecorder) *Exporter {
	recorder.CreateTable(EventTable, EventRow{})

	return &Exporter{
		recorder: recorder,
		exported: make(map[model.ID]int),
	}
}

// Export writes the records added since the previous call and flushes. It
// returns the number of rows written. A recording that shrank since the
// previous call was cleared and is exported again from its start.
func (e *Exporter) Export(src Source) (int, error) {
	nodes, err := src.Nodes()
	if err != nil {
		return 0, err
	}

	rows := 0
	for _, n := range nodes {
		written, err := e.exportNode(src, n)
		if err != nil {
			return rows, err
		}

		rows += written
	}

	e.recorder.Flush()

	return rows, nil
}

func (e *Exporter) exportNode(src Source, n kernel.NodeInfo) (int, error) {
	var variables []string

	switch n.Kind {
	case model.KindRecorder.String():
	case model.KindSampler.String():
		fields, err := src.Fields(n.ID)
		if err != nil {
			return 0, err
		}

		variables = fields[2:]
	default:
		return 0, nil
	}

	records, err := src.Records(n.ID)
	if err != nil {
		return 0, err
	}

	done := e.exported[n.ID]
	if done > len(records) {
		done = 0
	}

	rows := 0
	for _, rec := range records[done:] {
		t, err := src.StepToMs(rec.Step)
		if err != nil {
			return rows, err
		}

		row := EventRow{
			NodeID: uint64(n.ID),
			Model:  n.Model,
			Step:   uint64(rec.Step),
			TimeMs: t,
			Sender: uint64(rec.Sender),
		}

		if variables == nil {
			row.Field = "spike"
			row.Value = float64(rec.Delivery)
			e.recorder.InsertData(EventTable, row)
			rows++

			continue
		}

		for i, name := range variables {
			row.Field = name
			row.Value = rec.Values[i]
			e.recorder.InsertData(EventTable, row)
			rows++
		}
	}

	e.exported[n.ID] = len(records)

	return rows, nil
}

// Reset forgets what was exported, for use after the kernel is reset.
func (e *Exporter) Reset() {
	e.exported = make(map[model.ID]int)
}
