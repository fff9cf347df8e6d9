// Command fib computes Fibonacci numbers via the CFG vertex flavor, the
// Go-native equivalent of the original's fib_cfg example.
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

var treeCfg = gsnzi.Config{Height: 9}

type fibEnv struct {
	n           int
	out         *int
	left, right int
}

// fibProgram is the CFG form of: if n<2 return n; else return fib(n-1)+fib(n-2).
func fibProgram() *vertex.Program {
	return &vertex.Program{Blocks: []vertex.Block{
		{ // 0: n < 2 ?
			Kind: vertex.Cond,
			Cond: func(e any) int {
				if e.(*fibEnv).n < 2 {
					return 1
				}
				return 2
			},
		},
		{ // 1: base case
			Kind: vertex.Step,
			Effect: func(e any) {
				env := e.(*fibEnv)
				*env.out = env.n
			},
			Next: 5,
		},
		{ // 2: fork left
			Kind: vertex.Spawn2Join,
			Spawn: func(e any) (*vertex.Program, any) {
				env := e.(*fibEnv)
				return fibProgram(), &fibEnv{n: env.n - 1, out: &env.left}
			},
			Next: 3,
		},
		{ // 3: fork right
			Kind: vertex.Spawn2Join,
			Spawn: func(e any) (*vertex.Program, any) {
				env := e.(*fibEnv)
				return fibProgram(), &fibEnv{n: env.n - 2, out: &env.right}
			},
			Next: 4,
		},
		{ // 4: combine
			Kind: vertex.Step,
			Effect: func(e any) {
				env := e.(*fibEnv)
				*env.out = env.left + env.right
			},
			Next: 5,
		},
		{Kind: vertex.Return}, // 5
	}}
}

func main() {
	fs := pflag.NewFlagSet("fib", pflag.ExitOnError)
	n := fs.IntP("n", "n", 20, "which Fibonacci number to compute")
	cfg := runtime.BindFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var result int
	root := vertex.NewCFGVertex(treeCfg, outset.NewSimple(), fibProgram(), &fibEnv{n: *n, out: &result})

	if err := runtime.Launch(*cfg, root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("fib(%d) = %d\n", *n, result)
}
