// Command vmemsim replays memory access traces through the simulated virtual
// memory and reports the physical addresses and fault latencies.
package main

import "github.com/sarchlab/vmemsim/vmemsim/cmd"

func main() {
	cmd.Execute()
}
