package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/pkg/health"
	"github.com/Ramsey-B/sorrel/pkg/ingest"
	"github.com/Ramsey-B/sorrel/pkg/kafka"
)

func init() {
	rootCmd.AddCommand(consumeCmd)
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Ingest listing batches from Kafka",
	Long: `Consume KAFKA_INPUT_TOPIC, one listing batch per message. A message offset is
committed only after its batch has committed. Metrics and health probes are served on METRICS_ADDR.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, appOptions{}, func(ctx context.Context, a *app) error {
			log := a.log.WithContext(ctx)

			checker := health.NewChecker(version)
			checker.AddCheck("database", a.db.PingContext)
			ops := health.NewServer(a.cfg.MetricsAddr, a.cfg.AppName, checker, a.log)
			ops.Start(ctx)
			defer func() {
				if err := ops.Shutdown(context.WithoutCancel(ctx)); err != nil {
					log.WithError(err).Warn("Failed to stop ops server")
				}
			}()

			svc := ingest.NewService(a.log, a.catalog, a.resolver())
			consumer := kafka.NewConsumer(a.cfg.Consumer(), a.log, svc.HandleMessage)
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			checker.SetReady(true)

			select {
			case <-ctx.Done():
			case <-consumer.Done():
			}
			if err := consumer.Stop(); err != nil {
				log.WithError(err).Warn("Failed to close Kafka reader")
			}
			return consumer.Err()
		})
	},
}
