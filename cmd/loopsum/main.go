// Command loopsum fills an array via a trivial-join parallel for-loop, the
// Go-native equivalent of the original's loops.cpp sequential_loop example:
// a shared join with no data carried back from the split-off half.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
	"github.com/outsetrun/heartbeat/runtime"
	"github.com/outsetrun/heartbeat/vertex"
)

func main() {
	fs := pflag.NewFlagSet("loopsum", pflag.ExitOnError)
	n := fs.IntP("n", "n", 1_000_000, "number of array elements to fill")
	cutoff := fs.Int("cutoff", 1024, "sequential chunk size below which the loop stops splitting")
	cfg := runtime.BindFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	a := make([]int, *n)
	prog := &vertex.Program{Blocks: []vertex.Block{
		{Kind: vertex.SpawnLoop, Loop: func(e any) *vertex.LoopFrame {
			return vertex.NewTrivialLoopFrame(0, *n, *cutoff, func(lo, hi int) {
				for i := lo; i < hi; i++ {
					a[i] = i * i
				}
			})
		}, Next: 1},
		{Kind: vertex.Return},
	}}

	root := vertex.NewCFGVertex(gsnzi.Config{Height: 9}, outset.NewSimple(), prog, nil)

	if err := runtime.Launch(*cfg, root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sum := 0
	for _, x := range a {
		sum += x
	}
	fmt.Printf("sum of squares over %d elements = %d\n", *n, sum)
}
