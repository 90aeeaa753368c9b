package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/pkg/ingest"
	"github.com/Ramsey-B/sorrel/pkg/resolution"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/store/memory"
)

var ingestDryRun bool

func init() {
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "resolve against a copy of the catalog without writing")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest retailer listing files",
	Long: `Ingest one or more retailer JSON files. Each file is one unit of work: it
commits completely or not at all. A failed file does not stop the next one,
but the command exits non-zero.

Examples:
  sorrel ingest shufersal.json victory.json
  sorrel ingest --dry-run rami_levy.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
			var catalog store.Catalog = a.catalog
			if ingestDryRun {
				products, err := a.catalog.Products().ListAll(ctx)
				if err != nil {
					return err
				}
				copied := memory.New()
				copied.Seed(products)
				catalog = copied
			}

			resolver := resolution.NewResolver(a.log, catalog, a.scorer)
			svc := ingest.NewService(a.log, catalog, resolver)

			var results []*ingest.BatchResult
			failed := 0
			for _, path := range args {
				batch, err := ingest.ReadBatchFile(path)
				if err == nil {
					var res *ingest.BatchResult
					if res, err = svc.IngestFile(ctx, batch); err == nil {
						results = append(results, res)
						continue
					}
				}
				failed++
				a.log.WithContext(ctx).WithError(err).WithField("file", path).Error("Failed to ingest file")
				if ctx.Err() != nil {
					break
				}
			}

			if err := printJSON(cmd, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		})
	},
}
