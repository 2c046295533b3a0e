// Package main is the entry point for the quill render cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"

	"go.trai.ch/quill/cmd/quill/commands"
	"go.trai.ch/quill/internal/app"
	"go.trai.ch/quill/internal/core/domain"
	_ "go.trai.ch/quill/internal/wiring"
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, err
	}))
}

func run(ctx context.Context, args []string, stderr io.Writer, provider ComponentProvider) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := provider(ctx)
	if err != nil {
		// Logger is not available if initialization failed.
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		var failure *domain.RenderFailure
		if errors.As(err, &failure) {
			// The captured renderer output is the actionable part.
			_, _ = fmt.Fprintln(stderr, failure.Diagnostic())
			return 1
		}
		if errors.Is(err, domain.ErrRenderFailed) {
			// Per-block diagnostics were already reported inline.
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
