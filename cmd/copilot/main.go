package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/flowpilot-ai/copilot/common/version"
	"github.com/flowpilot-ai/copilot/internal/copilot/app"
	"github.com/flowpilot-ai/copilot/internal/copilot/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	fmt.Printf("FlowPilot Copilot\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	copilot, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize copilot: %v\n", err)
		os.Exit(1)
	}
	defer copilot.Stop()

	if err := copilot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running copilot: %v\n", err)
		os.Exit(1)
	}
}
