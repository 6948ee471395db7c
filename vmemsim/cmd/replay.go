package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/sarchlab/vmemsim/datarecording"
	"github.com/sarchlab/vmemsim/mem"
	"github.com/sarchlab/vmemsim/mem/trace"
	"github.com/sarchlab/vmemsim/mem/vm/frame"
	"github.com/sarchlab/vmemsim/mem/vm/vmem"
	"github.com/spf13/cobra"
)

// replayOptions holds the flags of the replay command.
type replayOptions struct {
	memory            uint64
	pageSize          uint64
	pageTablePageSize uint64
	pteBytes          uint64
	levels            int
	penalty           uint64
	seed              uint64
	coolDown          uint64
	record            string
	verbose           bool
	quiet             bool
}

var replayOpts = replayOptions{}

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "Replay a memory access trace through the virtual memory.",
	Long: `Replay a memory access trace through the virtual memory.

Each line of the trace is one of
  <cycle> T <core> <vaddr>           translate a virtual address
  <cycle> W <core> <vaddr> <level>   walk the page table at a level
  <cycle> R                          reclaim idle regions
Cycles must not decrease. Lines starting with # are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return replay(replayOpts, f, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	flags := replayCmd.Flags()
	flags.Uint64Var(&replayOpts.memory, "memory", 1*mem.GB,
		"The physical memory capacity in bytes.")
	flags.Uint64Var(&replayOpts.pageSize, "page-size", 4*mem.KB,
		"The page size in bytes.")
	flags.Uint64Var(&replayOpts.pageTablePageSize, "pt-page-size", 4*mem.KB,
		"The size of a page-table node in bytes.")
	flags.Uint64Var(&replayOpts.pteBytes, "pte-bytes", 8,
		"The size of a page-table entry in bytes.")
	flags.IntVar(&replayOpts.levels, "levels", 5,
		"The number of page-table levels.")
	flags.Uint64Var(&replayOpts.penalty, "penalty", 200,
		"The minor fault penalty in cycles.")
	flags.Uint64Var(&replayOpts.seed, "seed", 0,
		"The seed that shuffles the physical frames. 0 disables shuffling.")
	flags.Uint64Var(&replayOpts.coolDown, "cool-down", frame.DefaultCoolDown,
		"The number of idle cycles before a region can be reclaimed.")
	flags.StringVar(&replayOpts.record, "record", "",
		"Record the faults into <record>.sqlite3.")
	flags.BoolVarP(&replayOpts.verbose, "verbose", "v", false,
		"Print every fault to stderr.")
	flags.BoolVarP(&replayOpts.quiet, "quiet", "q", false,
		"Print only the summary.")

	rootCmd.AddCommand(replayCmd)
}

// replayClock is the memory controller of a replay. The cycle follows the
// trace.
type replayClock struct {
	capacity uint64
	cycle    uint64
}

func (c *replayClock) Size() uint64 {
	return c.capacity
}

func (c *replayClock) CurrentCycle() uint64 {
	return c.cycle
}

// colorWriter writes everything in one color.
type colorWriter struct {
	c *color.Color
	w io.Writer
}

func (cw colorWriter) Write(p []byte) (int, error) {
	_, err := cw.c.Fprint(cw.w, string(p))
	if err != nil {
		return 0, err
	}

	return len(p), nil
}

// replayStats summarizes a replay.
type replayStats struct {
	translations    int
	walks           int
	reclaims        int
	faults          int
	pageTableFaults int
	penaltyCycles   uint64
}

func buildTranslator(
	opts replayOptions,
	clock *replayClock,
	errOut io.Writer,
) (*vmem.Translator, error) {
	warnings := log.New(colorWriter{c: color.New(color.FgYellow), w: errOut}, "", 0)

	return vmem.MakeBuilder().
		WithMemoryController(clock).
		WithPageSize(opts.pageSize).
		WithPageTablePageSize(opts.pageTablePageSize).
		WithPTEBytes(opts.pteBytes).
		WithLevels(opts.levels).
		WithMinorFaultPenalty(opts.penalty).
		WithShuffleSeed(opts.seed).
		WithCoolDown(opts.coolDown).
		WithLogger(warnings).
		Build("VMem")
}

func replay(opts replayOptions, in io.Reader, out, errOut io.Writer) error {
	accesses, err := readTrace(in)
	if err != nil {
		return err
	}

	clock := &replayClock{capacity: opts.memory}

	t, err := buildTranslator(opts, clock, errOut)
	if err != nil {
		return err
	}

	if opts.verbose {
		t.AcceptHook(trace.NewTracer(errOut))
	}

	if opts.record != "" {
		recorder := datarecording.New(opts.record)
		defer recorder.Close()

		t.AcceptHook(trace.NewDBTracer(recorder))
	}

	stats := replayStats{}
	for _, a := range accesses {
		clock.cycle = a.cycle

		if err := replayAccess(t, a, &stats, out, opts.quiet); err != nil {
			color.New(color.FgRed).Fprintf(errOut, "line %d: %v\n", a.line, err)
			return err
		}
	}

	printSummary(out, t, stats)

	return nil
}

func replayAccess(
	t *vmem.Translator,
	a access,
	stats *replayStats,
	out io.Writer,
	quiet bool,
) error {
	switch a.kind {
	case accessTranslate:
		pAddr, latency, err := t.Translate(a.core, a.vAddr)
		if err != nil {
			return err
		}

		stats.translations++
		stats.count(latency, false)

		if !quiet {
			fmt.Fprintf(out, "%d T %d 0x%x -> 0x%x %d\n",
				a.cycle, a.core, a.vAddr, pAddr, latency)
		}
	case accessWalk:
		ptePAddr, latency, err := t.WalkPageTable(a.core, a.vAddr, a.level)
		if err != nil {
			return err
		}

		stats.walks++
		stats.count(latency, true)

		if !quiet {
			fmt.Fprintf(out, "%d W %d 0x%x %d -> 0x%x %d\n",
				a.cycle, a.core, a.vAddr, a.level, ptePAddr, latency)
		}
	case accessReclaim:
		n := t.ReclaimIdle()
		stats.reclaims += n

		if !quiet {
			fmt.Fprintf(out, "%d R %d\n", a.cycle, n)
		}
	}

	return nil
}

func (s *replayStats) count(latency uint64, pageTable bool) {
	if latency == 0 {
		return
	}

	s.penaltyCycles += latency

	if pageTable {
		s.pageTableFaults++
	} else {
		s.faults++
	}
}

func printSummary(out io.Writer, t *vmem.Translator, stats replayStats) {
	faultColor := color.New(color.FgRed)
	bold := color.New(color.Bold)

	bold.Fprintf(out, "%s summary\n", t.Name())
	fmt.Fprintf(out, "  translations:       %d\n", stats.translations)
	fmt.Fprintf(out, "  page-table walks:   %d\n", stats.walks)
	faultColor.Fprintf(out, "  page faults:        %d\n", stats.faults)
	faultColor.Fprintf(out, "  page-table faults:  %d\n", stats.pageTableFaults)
	fmt.Fprintf(out, "  penalty cycles:     %d\n", stats.penaltyCycles)
	fmt.Fprintf(out, "  reclaimed regions:  %d\n", stats.reclaims)
	fmt.Fprintf(out, "  mapped pages:       %d\n", t.NumTranslations())
	fmt.Fprintf(out, "  page-table nodes:   %d\n", t.NumPageTableNodes())
	fmt.Fprintf(out, "  free frames:        %d\n", t.AvailableFrames())
}
