package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/siria-chat/siria/common/environment"
	"github.com/siria-chat/siria/common/version"
	"github.com/siria-chat/siria/internal/siria/app"
	"github.com/siria-chat/siria/internal/siria/config"
	"github.com/siria-chat/siria/internal/siria/observability"
)

func main() {
	fmt.Printf("Siria Chat Server\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	observability.Setup(
		environment.StringOr("SIRIA_LOG_LEVEL", "info"),
		environment.StringOr("SIRIA_LOG_FORMAT", "text"),
	)

	cfg, err := config.Load(environment.StringOr("SIRIA_CONFIG", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Completion.APIKey == "" {
		slog.Warn("no completion API key configured; chat turns will fail at the completion call")
	}

	siria, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Siria: %v\n", err)
		os.Exit(1)
	}
	defer siria.Stop()

	if err := siria.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Siria: %v\n", err)
		os.Exit(1)
	}
}
