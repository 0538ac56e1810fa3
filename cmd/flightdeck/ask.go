package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/flightdeck/config"
	"github.com/mohammad-safakhou/flightdeck/internal/amadeus"
	"github.com/mohammad-safakhou/flightdeck/internal/llm"
	"github.com/mohammad-safakhou/flightdeck/internal/pipeline"
)

// askCMD runs the pipeline once from the terminal, without the Slack
// surface. Useful for poking at queries and strategy behaviour.
func askCMD() *cobra.Command {
	var cfgPath string
	var ask = &cobra.Command{
		Use:   "ask <flight query>",
		Short: "Run one flight query through the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			provider, err := llm.NewProvider(cfg.LLM, nil)
			if err != nil {
				return err
			}

			execLogger := log.New(log.Writer(), "[EXEC] ", log.LstdFlags)
			tokens := amadeus.NewTokenSource(cfg.Amadeus.ClientID, cfg.Amadeus.ClientSecret, cfg.Amadeus.AuthURL,
				&http.Client{Timeout: cfg.Amadeus.Timeout}, execLogger, nil)
			executor := amadeus.NewExecutor(tokens,
				amadeus.DefaultStrategies(cfg.Amadeus.BaseURLV1, cfg.Amadeus.BaseURLV2),
				&http.Client{Timeout: cfg.Amadeus.Timeout}, execLogger, nil)

			pipe := pipeline.New(provider, executor, nil, nil, nil,
				log.New(log.Writer(), "[PIPE] ", log.LstdFlags))

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.General.DefaultTimeout)
			defer cancel()

			answer := pipe.Process(ctx, pipeline.Query{Text: strings.Join(args, " "), UserID: "cli"}, func(msg string) {
				fmt.Println(msg)
			})
			fmt.Println()
			fmt.Println(answer)
			return nil
		},
	}
	ask.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ask
}
