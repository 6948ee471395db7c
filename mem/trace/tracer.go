// Package trace provides hooks that trace the faults of a virtual memory
// model.
package trace

import (
	"io"
	"slices"

	"github.com/rs/xid"
	"github.com/sarchlab/vmemsim/datarecording"
	"github.com/sarchlab/vmemsim/mem/vm"
	"github.com/sarchlab/vmemsim/sim"
)

// FaultTableName is the name of the table the database tracer writes to.
const FaultTableName = "page_faults"

// faultEntry represents a fault in the database
type faultEntry struct {
	ID      string
	Kind    string
	Core    uint32
	VAddr   uint64
	PAddr   uint64
	Frame   uint64
	Level   int
	Cycle   uint64
	Latency uint64
}

func kindOf(info vm.FaultInfo) string {
	if info.IsPageTableFault() {
		return "page_table"
	}

	return "page"
}

func faultOf(ctx sim.HookCtx) (vm.FaultInfo, bool) {
	if ctx.Pos != vm.HookPosPageFault && ctx.Pos != vm.HookPosPageTableFault {
		return vm.FaultInfo{}, false
	}

	info, ok := ctx.Item.(vm.FaultInfo)

	return info, ok
}

// A tracer is a hook that prints every fault as a line of text.
type tracer struct {
	sim.LogHookBase
}

// NewTracer creates a hook that prints faults to the writer.
func NewTracer(w io.Writer) sim.Hook {
	return &tracer{LogHookBase: sim.NewLogHookBase(w, "")}
}

func (t *tracer) Func(ctx sim.HookCtx) {
	info, ok := faultOf(ctx)
	if !ok {
		return
	}

	t.Printf("[VMEM] %s, %d, core %d, vaddr 0x%x, paddr 0x%x, level %d, latency %d\n",
		kindOf(info),
		info.Cycle,
		info.Core,
		info.VAddr,
		info.PAddr,
		info.Level,
		info.Latency,
	)
}

// A dbTracer is a hook that records every fault into a database.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a hook that records faults with the data recorder.
// Tracers that share a recorder share the fault table.
func NewDBTracer(dataRecorder datarecording.DataRecorder) sim.Hook {
	t := &dbTracer{dataRecorder: dataRecorder}
	if !slices.Contains(dataRecorder.ListTables(), FaultTableName) {
		t.dataRecorder.CreateTable(FaultTableName, faultEntry{})
	}

	return t
}

func (t *dbTracer) Func(ctx sim.HookCtx) {
	info, ok := faultOf(ctx)
	if !ok {
		return
	}

	entry := faultEntry{
		ID:      xid.New().String(),
		Kind:    kindOf(info),
		Core:    uint32(info.Core),
		VAddr:   info.VAddr,
		PAddr:   info.PAddr,
		Frame:   uint64(info.Frame),
		Level:   info.Level,
		Cycle:   info.Cycle,
		Latency: info.Latency,
	}

	t.dataRecorder.InsertData(FaultTableName, entry)
}
