package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Feras-dev/track-laser-pointer/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// An interrupt halts a batch between frames.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := cli.NewRootCommand(cli.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})
	err := root.ExecuteContext(ctx)
	stop()

	os.Exit(cli.ExitCode(err))
}
