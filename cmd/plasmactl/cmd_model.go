package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/core/aggregates"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/config"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/di"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/ingest"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/recipe"
)

type modelOutput struct {
	Concepts map[string]string           `json:"concepts"`
	Applied  int                         `json:"applied"`
	Model    aggregates.CombinedModelDTO `json:"model"`
}

func newModelCmd() *cobra.Command {
	var (
		recipePath   string
		dataSourceID string
		storage      string
	)
	cmd := &cobra.Command{
		Use:   "model --recipe <file.hcl> <sample file>...",
		Short: "Analyze sample files and apply a modeling recipe to the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := recipe.ParseFile(recipePath)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Storage.Driver = storage
			cfg.Events.Driver = config.EventsLog
			cfg.Tracing.Enabled = false

			ctx := cmd.Context()
			container, cleanup, err := di.InitializeContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ingestFiles(ctx, container, dataSourceID, args); err != nil {
				return err
			}
			if _, err := container.Analysis.Finalize(ctx, dataSourceID, true); err != nil {
				return err
			}
			session, err := container.Modeling.StartSession(ctx, dataSourceID)
			if err != nil {
				return err
			}

			result, err := container.Recipes.Run(ctx, session.SessionID().String(), file)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), modelOutput{
				Concepts: result.Concepts,
				Applied:  result.Applied,
				Model:    result.Model.ToDTO(),
			})
		},
	}
	cmd.Flags().StringVarP(&recipePath, "recipe", "r", "", "HCL recipe to apply")
	cmd.Flags().StringVar(&dataSourceID, "data-source", "cli", "data source id the samples are ingested under")
	cmd.Flags().StringVar(&storage, "storage", config.StorageMemory, "snapshot archive driver")
	_ = cmd.MarkFlagRequired("recipe")
	return cmd
}

// ingestFiles feeds the samples of every file to the analysis service in
// requests no larger than the configured sample limit.
func ingestFiles(ctx context.Context, container *di.Container, dataSourceID string, paths []string) error {
	limit := container.Analysis.Config().SampleLimit
	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		samples, err := ingest.Split(body)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for start := 0; start < len(samples); start += limit {
			end := min(start+limit, len(samples))
			res, err := container.Analysis.IngestSamples(ctx, dataSourceID, samples[start:end])
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if res.Rejected > 0 {
				container.Logger.Warn("Samples rejected",
					zap.String("file", path),
					zap.Int("rejected", res.Rejected),
				)
			}
		}
	}
	return nil
}
