// Command slicecopy copies every object under a source prefix into numbered
// slice folders of a destination prefix.
//
//	slicecopy copy SRC_BUCKET SRC_DIR DST_BUCKET DST_DIR [SLICES [WORKERS]]
//	slicecopy plan SRC_BUCKET SRC_DIR DST_BUCKET DST_DIR [SLICES]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp(os.Stdout, os.Stderr).rootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
