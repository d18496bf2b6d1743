package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "quantengine",
	Short: "Quant Engine - trading question analysis service",
	Long: `Quant Engine answers trading and prediction-market questions by gathering
context from Wikipedia, Finnhub and Polymarket, then asking an LLM for a
structured confidence estimate.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
