package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"als-transform/internal/config"
	"als-transform/internal/logging"
	_ "als-transform/internal/mapping"
)

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	debug      bool
	logFormat  string
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "als-transform",
		Short:         "Map ALS source records into the harmonized model and validate them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&a.configPath, "config", "", "config yaml path (default "+config.DefaultPath+" if present)")
	fs.BoolVar(&a.debug, "debug", false, "debug logging with record dumps")
	fs.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	cmd.AddCommand(
		newTransformCmd(a),
		newValidateCmd(a),
		newComposeCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)

	return cmd
}

// setup loads configuration and builds the logger.
func (a *app) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, loadErr(err)
	}

	if a.debug {
		cfg.Logging.Level = "debug"
	}

	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	logger, err := logging.New(cfg.Logging, a.stderr)
	if err != nil {
		return nil, nil, loadErr(err)
	}

	return cfg, logger, nil
}
