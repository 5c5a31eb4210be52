package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"X402/pkg/chain"
	"X402/pkg/config"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// wallet prints the gas and payment-token balances of an address and flags
// whether it can afford one signal.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	address := flag.String("address", "", "address to inspect (defaults to the agent wallet)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	node, err := chain.Dial(ctx, cfg.Payment.RPCURL)
	if err != nil {
		log.Fatal(err)
	}
	defer node.Close()

	owner, err := resolveOwner(*address, cfg, node)
	if err != nil {
		log.Fatal(err)
	}
	token := common.HexToAddress(cfg.Payment.TokenAddress)
	price, err := decimal.NewFromString(cfg.Payment.Price)
	if err != nil {
		log.Fatalf("payment.price: %v", err)
	}

	native, err := node.BalanceAt(ctx, owner, nil)
	if err != nil {
		log.Fatalf("native balance: %v", err)
	}
	tokens, err := chain.TokenBalance(ctx, node, token, owner)
	if err != nil {
		log.Fatalf("token balance: %v", err)
	}

	fmt.Printf("address: %s\n", owner.Hex())
	fmt.Printf("gas balance: %s\n", chain.FromMinorUnits(native, chain.NativeDecimals).String())
	fmt.Printf("token balance: %s (%s)\n", chain.FromMinorUnits(tokens, cfg.Payment.TokenDecimals).String(), token.Hex())

	ok := true
	if native.Sign() == 0 {
		fmt.Println("WARNING: no gas balance, transfers cannot be broadcast")
		ok = false
	}
	if tokens.Cmp(chain.ToMinorUnits(price, cfg.Payment.TokenDecimals)) < 0 {
		fmt.Printf("WARNING: token balance below one signal price (%s)\n", price.String())
		ok = false
	}
	if !ok {
		node.Close()
		os.Exit(1)
	}
	fmt.Println("ready to pay")
}

func resolveOwner(flagValue string, cfg *config.Config, node chain.TxSender) (common.Address, error) {
	if flagValue != "" {
		return chain.ParseAddress(flagValue)
	}
	if cfg.Agent.PrivateKey == "" {
		return common.Address{}, fmt.Errorf("pass -address or configure agent.private_key")
	}
	w, err := chain.NewWallet(node, cfg.Agent.PrivateKey, cfg.Payment.ChainID, cfg.Agent.GasLimit)
	if err != nil {
		return common.Address{}, err
	}
	return w.Address(), nil
}
