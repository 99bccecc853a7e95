package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"review-digest/config"
	"review-digest/events"
	"review-digest/pipeline"
)

// analyze 는 상품 하나를 분석해 결과를 JSON 으로 표준출력에 쓴다.
func main() {
	query := flag.String("query", "", "product search query")
	flag.Parse()
	if strings.TrimSpace(*query) == "" && flag.NArg() > 0 {
		*query = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(*query) == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -query \"<product name>\"")
		os.Exit(2)
	}

	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, closeCollaborators, err := pipeline.ConnectCollaborators(ctx, cfg)
	if err != nil {
		config.Logger.Errorf("failed to connect collaborators: %v", err)
		os.Exit(1)
	}
	defer closeCollaborators()

	app, err := pipeline.NewApp(ctx, cfg, append(opts, pipeline.WithSource(events.SourceCLI))...)
	if err != nil {
		config.Logger.Errorf("failed to initialize pipeline: %v", err)
		os.Exit(1)
	}

	res, err := app.RunAnalysis(ctx, *query)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintln(os.Stderr, stageErr.UserMessage())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		closeCollaborators()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		config.Logger.Errorf("failed to write result: %v", err)
	}
}
