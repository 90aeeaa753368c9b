package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/pkg/ingest"
)

var pricesHistory bool

func init() {
	pricesCmd.Flags().BoolVar(&pricesHistory, "history", false, "treat the id as a listing id and print its full price history")
	rootCmd.AddCommand(pricesCmd)
}

var pricesCmd = &cobra.Command{
	Use:   "prices ID",
	Short: "Print the latest price of every listing of a canonical product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
			svc := ingest.NewService(a.log, a.catalog, a.resolver())
			if pricesHistory {
				history, err := svc.PriceHistory(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, history)
			}
			latest, err := svc.LatestPrices(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, latest)
		})
	},
}
