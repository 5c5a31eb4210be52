package main

import (
	"context"
	"flag"
	"log"
	"os"

	"X402/internal/di"
	"X402/internal/settlement"
	"X402/pkg/chain"
	"X402/pkg/config"
	"X402/pkg/metrics"
)

// buyer runs one settlement against the configured signal server.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	apiURL := flag.String("api", "", "signal server base URL (overrides agent.api_url)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *apiURL != "" {
		cfg.Agent.APIURL = *apiURL
	}
	if cfg.Agent.PrivateKey == "" {
		log.Fatal("agent.private_key (or AGENT_PRIVATE_KEY) is required")
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	node, err := chain.Dial(ctx, cfg.Payment.RPCURL)
	if err != nil {
		log.Fatal(err)
	}
	defer node.Close()

	wallet, err := chain.NewWallet(node, cfg.Agent.PrivateKey, cfg.Payment.ChainID, cfg.Agent.GasLimit)
	if err != nil {
		log.Fatalf("agent wallet: %v", err)
	}
	log.Printf("agent %s paying from %s", cfg.Agent.Source, wallet.Address().Hex())

	res := di.NewAgent(cfg, wallet, metrics.Nop{}, l).Run(ctx, "")
	log.Printf("run %s finished in %s tx=%s attempts=%d", res.RunID, res.State, res.TxHash, res.Attempts)
	if res.State != settlement.StateDelivered {
		if res.Err != nil {
			log.Printf("error: %v", res.Err)
		}
		node.Close()
		os.Exit(1)
	}
	log.Print(settlement.Summary(res.Signal))
}
