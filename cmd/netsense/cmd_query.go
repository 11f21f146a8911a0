package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/netsense/internal/config"
	"github.com/HerbHall/netsense/internal/permission"
)

// runQuery runs one facade call with the configured providers and prints
// the result as JSON. The CLI has no prompt UI, so the permission mode
// defaults to granted.
func runQuery(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	modeFlag := fs.String("permission", string(permission.ModeGranted), "permission mode: granted, denied or prompt")
	timeout := fs.Duration("timeout", 30*time.Second, "overall query timeout")
	verbose := fs.Bool("v", false, "log provider errors to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one of wifi, network, detail, generation")
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	mode, err := permission.ParseMode(*modeFlag)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, mode, nil, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var out any
	switch what := fs.Arg(0); what {
	case "wifi":
		out = a.facade.WifiSignalStrength(ctx)
	case "network":
		out = map[string]any{"type": a.facade.MobileNetworkType(ctx)}
	case "detail":
		out = a.facade.DetailedInfo(ctx)
	case "generation":
		out = a.facade.GatedClassify(ctx)
	default:
		return fmt.Errorf("unknown query %q", what)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
