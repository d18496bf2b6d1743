package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/planetquant/quant-engine/internal/core"
	"github.com/planetquant/quant-engine/internal/logger"
	"github.com/spf13/cobra"
)

var (
	askContext string
	askSymbol  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Analyze a single question and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askContext, "context", "", "additional context for the question")
	askCmd.Flags().StringVar(&askSymbol, "symbol", "", "stock symbol override")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	eng := buildAnalyzer(cfg, nil, log)

	resp, err := eng.Analyze(context.Background(), core.TradeRequest{
		Question: args[0],
		Context:  askContext,
		Symbol:   askSymbol,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
