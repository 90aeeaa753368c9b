package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/pkg/clustering"
	"github.com/Ramsey-B/sorrel/pkg/consolidation"
	"github.com/Ramsey-B/sorrel/pkg/dedup"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
)

var (
	candidatesOutput string
)

func init() {
	candidatesCmd.Flags().StringVarP(&candidatesOutput, "output", "o", "", "write the review CSV here instead of stdout")

	rootCmd.AddCommand(clusterCmd, consolidateCmd, candidatesCmd, dedupCmd, reportCmd, reindexCmd, verifyCmd)
}

var maintenance = appOptions{maintenance: true}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Rebuild equivalence groups from brand, product type and size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, maintenance, func(ctx context.Context, a *app) error {
			ctx, _ = runctx.EnsureRunID(ctx)
			n, err := clustering.NewService(a.log, a.catalog).RebuildGroups(ctx)
			if err != nil {
				return err
			}
			a.announce(ctx, "cluster", int64(n), map[string]int{"groups": n})
			return printJSON(cmd, map[string]int{"groups": n})
		})
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate REVIEW.csv",
	Short: "Merge reviewed duplicate groups into their shortest-named member",
	Long: `Apply a reviewed duplicate file with the header
group_id,masterproductid,productname[,is_canonical]. All groups commit together
or not at all. Re-running the same file changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		groups, err := consolidation.ReadReviewCSV(f)
		if err != nil {
			return err
		}

		return withApp(cmd, maintenance, func(ctx context.Context, a *app) error {
			ctx, _ = runctx.EnsureRunID(ctx)
			result, err := consolidation.NewService(a.log, a.catalog).Apply(ctx, groups)
			if err != nil {
				return err
			}
			a.announce(ctx, "consolidate", result.Repointed, result)
			return printJSON(cmd, result)
		})
	},
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Write likely duplicate groups as a review CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
			groups, err := consolidation.NewService(a.log, a.catalog).FindCandidates(ctx, consolidation.FinderOptions{
				MaxPosting:    a.cfg.CandidateMaxPosting,
				BrandKeywords: a.scorer.BrandKeywords(),
			})
			if err != nil {
				return err
			}

			if candidatesOutput == "" {
				return consolidation.WriteReviewCSV(cmd.OutOrStdout(), groups)
			}
			f, err := os.Create(candidatesOutput)
			if err != nil {
				return err
			}
			if err := consolidation.WriteReviewCSV(f, groups); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		})
	},
}

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Merge color-only and brand-named products, then rename color-only names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, maintenance, func(ctx context.Context, a *app) error {
			ctx, _ = runctx.EnsureRunID(ctx)
			svc := dedup.NewService(a.log, a.catalog, dedup.WithBrandGroupLimit(a.cfg.DedupBrandGroupLimit))
			results, err := svc.Run(ctx)
			for _, r := range results {
				a.announce(ctx, r.Pass, r.Rows(), r)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, results)
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print catalog hygiene counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
			report, err := dedup.NewService(a.log, a.catalog).Report(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the token index from current display names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, maintenance, func(ctx context.Context, a *app) error {
			n, err := a.resolver().Reindex(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]int{"products": n})
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every product is at most one hop from a canonical product",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
			violations, err := consolidation.NewService(a.log, a.catalog).Verify(ctx)
			if err != nil {
				return err
			}
			for _, v := range violations {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
			}
			if len(violations) > 0 {
				return errors.New("catalog has redirect violations")
			}
			return nil
		})
	},
}
