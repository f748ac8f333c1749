// Command plasmactl infers schemas from sample files, applies modeling
// recipes offline and issues API tokens.
package main

import (
	"fmt"
	"io"
	"os"

	j "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tmdt-buw/plasma-sub002/infrastructure/config"
)

var (
	configDir string
	logLevel  string

	rootCmd = &cobra.Command{
		Use:           "plasmactl",
		Short:         "Schema inference and semantic modeling from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding base.yaml and <environment>.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level of the embedded services")

	rootCmd.AddCommand(newInferCmd(), newModelCmd(), newTokenCmd(), newConfigCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the layered configuration and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(configDir, config.CurrentEnvironment()).Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := j.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
