package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/vmemsim/mem/vm"
)

type accessKind int

const (
	accessTranslate accessKind = iota
	accessWalk
	accessReclaim
)

// An access is one line of a trace file. The formats are
//
//	<cycle> T <core> <vaddr>
//	<cycle> W <core> <vaddr> <level>
//	<cycle> R
//
// Numbers can be written in any base strconv understands with prefix.
// Empty lines and lines starting with # are skipped.
type access struct {
	line  int
	cycle uint64
	kind  accessKind
	core  vm.CoreID
	vAddr uint64
	level int
}

func parseUint(field string, bits int) (uint64, error) {
	return strconv.ParseUint(field, 0, bits)
}

func parseAccess(lineNo int, text string) (access, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "#") {
		return access{}, false, nil
	}

	fields := strings.Fields(text)
	a := access{line: lineNo}

	if len(fields) < 2 {
		return a, false, fmt.Errorf("line %d: too few fields", lineNo)
	}

	var err error
	a.cycle, err = parseUint(fields[0], 64)
	if err != nil {
		return a, false, fmt.Errorf("line %d: cycle: %w", lineNo, err)
	}

	expected := map[string]int{"T": 4, "W": 5, "R": 2}
	op := strings.ToUpper(fields[1])
	n, known := expected[op]
	if !known {
		return a, false, fmt.Errorf("line %d: unknown operation %q", lineNo, fields[1])
	}

	if len(fields) != n {
		return a, false, fmt.Errorf("line %d: %s takes %d fields, got %d",
			lineNo, op, n, len(fields))
	}

	switch op {
	case "R":
		a.kind = accessReclaim
		return a, true, nil
	case "T":
		a.kind = accessTranslate
	case "W":
		a.kind = accessWalk
	}

	core, err := parseUint(fields[2], 32)
	if err != nil {
		return a, false, fmt.Errorf("line %d: core: %w", lineNo, err)
	}
	a.core = vm.CoreID(core)

	a.vAddr, err = parseUint(fields[3], 64)
	if err != nil {
		return a, false, fmt.Errorf("line %d: address: %w", lineNo, err)
	}

	if a.kind == accessWalk {
		level, err := parseUint(fields[4], 8)
		if err != nil {
			return a, false, fmt.Errorf("line %d: level: %w", lineNo, err)
		}
		a.level = int(level)
	}

	return a, true, nil
}

// readTrace parses all the accesses of a trace. Cycles must not decrease.
func readTrace(r io.Reader) ([]access, error) {
	var accesses []access

	scanner := bufio.NewScanner(r)
	lineNo := 0
	lastCycle := uint64(0)

	for scanner.Scan() {
		lineNo++

		a, ok, err := parseAccess(lineNo, scanner.Text())
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		if a.cycle < lastCycle {
			return nil, fmt.Errorf("line %d: cycle %d is before cycle %d",
				lineNo, a.cycle, lastCycle)
		}
		lastCycle = a.cycle

		accesses = append(accesses, a)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return accesses, nil
}
