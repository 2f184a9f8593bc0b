package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ToxicTide/internal/di"
	internalrepo "ToxicTide/internal/repository"
	"ToxicTide/internal/usecase"
	"ToxicTide/pkg/config"
	applogger "ToxicTide/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	replayPath := flag.String("replay", "", "verify a recorded ledger instead of trading")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *replayPath != "" {
		if err := runReplay(cfg, *replayPath); err != nil {
			log.Printf("replay failed: %v", err)
			os.Exit(1)
		}
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("symbol=%s feed=%s execution=%s ledger=%s",
		cfg.Market.Symbol, cfg.Feed.Type, cfg.Execution.Mode, cfg.Ledger.Path)

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

// runReplay re-runs the decision chain over a recorded session and reports
// any divergence from the logged outcomes.
func runReplay(cfg *config.Config, path string) error {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	records, err := internalrepo.ReadLedger(path)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	replayer := usecase.NewReplayer(di.ProvidePipeline(cfg, l), l)
	result := replayer.Replay(records)

	fmt.Printf("replayed %d ticks\n", result.Ticks)
	if result.Deterministic() {
		fmt.Println("session verified: all decisions reproduced")
		return nil
	}
	for _, m := range result.Mismatches {
		fmt.Println(m.String())
	}
	return fmt.Errorf("%d mismatches", len(result.Mismatches))
}
