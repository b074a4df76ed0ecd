// Command pingpongd streams a simulated device through a pingpong session,
// draining (and optionally journalling) each slot, until interrupted.
//
// Usage:
//
//	pingpongd [-config pingpongd.toml] [-stats stats.json] [-duration 10s]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
