// Package cli implements the crimectl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jengzang/crime-eda-backend-go/internal/config"
	"github.com/jengzang/crime-eda-backend-go/internal/ingest"
	"github.com/jengzang/crime-eda-backend-go/internal/logging"
	"github.com/jengzang/crime-eda-backend-go/internal/memo"
	"github.com/jengzang/crime-eda-backend-go/internal/service"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Loader builds an aggregate service over a freshly loaded dataset
type Loader func(ctx context.Context, configPath string) (*service.AggregateService, error)

// LoadFromConfig reads the configured sources once, without a snapshot store
func LoadFromConfig(ctx context.Context, configPath string) (*service.AggregateService, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Config{Level: "warn", Format: "console"})
	if err != nil {
		return nil, err
	}

	incidents, err := ingest.NewIncidentSource(cfg.IncidentsFormat, cfg.IncidentsPath)
	if err != nil {
		return nil, err
	}
	areas := &ingest.CSVAreaSource{Path: cfg.AreasPath, Schema: cfg.PolygonSchema()}

	cache := memo.New(cfg.CacheTTL, nil)
	datasets := service.NewDatasetService(incidents, areas, nil, cache, nil, logger)
	if _, err := datasets.Refresh(ctx); err != nil {
		return nil, err
	}
	return service.NewAggregateService(datasets, cache), nil
}

// RootCmd is the crimectl command tree
type RootCmd struct {
	load Loader
}

// NewRootCmd creates the command tree using load to obtain the dataset
func NewRootCmd(load Loader) *RootCmd {
	return &RootCmd{load: load}
}

// Command builds the cobra root command
func (r *RootCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crimectl",
		Short:         "Explore the crime incident dataset from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", "", "path to a YAML config file")
	cmd.PersistentFlags().String("format", FormatTable, "output format (table, json)")

	cmd.AddCommand(
		r.summaryCmd(),
		r.periodsCmd(),
		r.topCmd(),
		r.densityCmd(),
		r.timeOfDayCmd(),
	)
	return cmd
}

// aggregates loads the dataset and resolves the output format
func (r *RootCmd) aggregates(cmd *cobra.Command) (*service.AggregateService, string, error) {
	format, err := cmd.Root().PersistentFlags().GetString("format")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != FormatTable && format != FormatJSON {
		return nil, "", fmt.Errorf("invalid format: %s", format)
	}
	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get config flag: %w", err)
	}

	svc, err := r.load(cmd.Context(), configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load dataset: %w", err)
	}
	return svc, format, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
