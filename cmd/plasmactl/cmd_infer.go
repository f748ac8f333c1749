package main

import (
	"fmt"
	"runtime"

	j "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/domain/analysis"
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/ingest"
)

type inferOutput struct {
	Samples  int            `json:"samples"`
	Rejected []string       `json:"rejected,omitempty"`
	Faults   []syntax.Fault `json:"faults,omitempty"`
	Syntax   j.RawMessage   `json:"syntax"`
}

func newInferCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "infer <file>...",
		Short: "Infer the merged syntax tree of JSON sample files",
		Long: `Reads every file as a JSON array of samples or a stream of JSON
documents, infers one tree per sample and merges them in file order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			batch, err := ingest.NewFileInferer(workers, logger).InferFiles(cmd.Context(), args)
			if err != nil {
				return err
			}

			agg := analysis.NewAggregator(len(batch.Nodes))
			out := inferOutput{}
			for i, n := range batch.Nodes {
				if batch.Errs[i] != nil {
					out.Rejected = append(out.Rejected, fmt.Sprintf("sample %d: %v", i+1, batch.Errs[i]))
					continue
				}
				if err := agg.AddNode(n); err != nil {
					out.Rejected = append(out.Rejected, err.Error())
				}
			}
			out.Samples = agg.Count()
			root := agg.Result()
			if root == nil {
				return fmt.Errorf("no sample carried data")
			}
			syntax.Finalize(root)
			out.Faults = syntax.EvaluateConstraints(root)
			if out.Syntax, err = syntax.MarshalNode(root); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "files read and inferred in parallel")
	return cmd
}
