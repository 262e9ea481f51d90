package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/config"
	"github.com/garyjia/claims-workflow/internal/infrastructure/external/lark"
)

// notify-check sends a single Lark IM text message using the configured app credentials.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file")
	openID := flag.String("open-id", "", "Recipient open_id (ou_...)")
	text := flag.String("text", "Claims workflow notification test", "Message text")
	timeout := flag.Duration("timeout", 15*time.Second, "API call timeout")
	flag.Parse()

	_ = gotenv.Load()

	if *openID == "" {
		fmt.Fprintln(os.Stderr, "ERROR: --open-id is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	larkCfg := lark.Config{AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret}
	if !larkCfg.Enabled() {
		fmt.Fprintln(os.Stderr, "ERROR: LARK_APP_ID and LARK_APP_SECRET are not configured")
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	notifier := lark.NewNotifier(lark.NewClient(larkCfg, logger), logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := notifier.SendText(ctx, *openID, *text); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to send message: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Message sent to %s\n", *openID)
}
