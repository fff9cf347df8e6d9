// Command counters sums squares over a range via a combine-join parallel
// reduction, the Go-native equivalent in spirit of the original's
// counters.cpp recursive incounter-splitting example, but exercising the
// loop frame's associative-combine path rather than raw incounter
// bookkeeping directly.
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
	fs := pflag.NewFlagSet("counters", pflag.ExitOnError)
	n := fs.IntP("n", "n", 1_000_000, "number of terms to sum")
	cutoff := fs.Int("cutoff", 1024, "sequential chunk size below which the loop stops splitting")
	cfg := runtime.BindFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lf := vertex.NewCombineLoopFrame(0, *n, *cutoff, 0, func(lo, hi int) any {
		s := 0
		for i := lo; i < hi; i++ {
			s += i * i
		}
		return s
	}, func(a, b any) any { return a.(int) + b.(int) })

	prog := &vertex.Program{Blocks: []vertex.Block{
		{Kind: vertex.SpawnLoop, Loop: func(e any) *vertex.LoopFrame { return lf }, Next: 1},
		{Kind: vertex.Return},
	}}

	root := vertex.NewCFGVertex(gsnzi.Config{Height: 9}, outset.NewSimple(), prog, nil)

	if err := runtime.Launch(*cfg, root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("sum of squares over %d terms = %v\n", *n, lf.Result())
}
