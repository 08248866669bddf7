// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"specsynth/cmd"
	"specsynth/internal/log"
	"specsynth/pkg/build"
)

// main wires build information, signal handling and the command tree.
// Ctrl-C cancels the command context, which stops batch scheduling,
// playback and frame draining.
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("build info: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}
