package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"als-transform/internal/record"
	"als-transform/internal/watch"
)

var errStdinWatch = errors.New("watch needs an input file, not stdin")

func newWatchCmd(a *app) *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "watch <input-file> [mapping-file]",
		Short: "Rerun transform whenever the input, mapping or schema changes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			j, err := resolveJob(cmd, cfg, &opts, args, true)
			if err != nil {
				return loadErr(err)
			}

			if j.inputPath == record.StdinPath {
				return loadErr(errStdinWatch)
			}

			rerun := func(ctx context.Context) {
				status, err := a.runJob(ctx, j, logger)
				if err != nil {
					logger.Error("run failed", zap.Error(err))
					return
				}

				logger.Info("run complete", zap.Stringer("status", status))
			}

			rerun(cmd.Context())

			debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond

			return watch.Files(cmd.Context(), []string{j.inputPath, j.mappingPath, j.schemaPath}, debounce, logger, rerun)
		},
	}

	addTransformFlags(cmd, &opts)

	return cmd
}
