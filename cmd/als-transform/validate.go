package main

import (
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "validate <records-file>",
		Short: "Validate already-mapped records against the target schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			j, err := resolveJob(cmd, cfg, &opts, args, false)
			if err != nil {
				return loadErr(err)
			}

			status, err := a.runJob(cmd.Context(), j, logger)
			if err != nil {
				return err
			}

			if !status.OK() {
				return &exitError{code: status.ExitCode()}
			}

			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.schemaPath, "schema", "", "target JSON Schema file")
	fs.StringVar(&opts.class, "class", "", "validate against $defs/<class> of the schema")
	fs.StringVar(&opts.format, "format", "", "input format: json, ndjson or csv (default from file extension)")
	fs.StringVar(&opts.itemsKey, "items-key", "", "read records from this key of the input object")
	fs.StringArrayVar(&opts.idFields, "id-field", nil, "record field naming a record in the error log (repeatable)")
	fs.StringArrayVar(&opts.mergeKeys, "merge-key", nil, "column joining the CSV files of a directory input (repeatable)")
	fs.StringVar(&opts.logErrors, "log-errors", "", "write the error log to this path")
	fs.StringVar(&opts.source, "source", "", "take schema and class from the named source profile")
	fs.BoolVar(&opts.strict, "strict", false, "fail the run on any violation")
	fs.BoolVar(&opts.fullSchema, "full-schema", false, "also report keywords outside the core subset")
	fs.BoolVar(&opts.caseInsensitive, "case-insensitive-enums", false, "match string enums ignoring case")
	fs.IntVar(&opts.workers, "workers", 0, "records validated concurrently")

	return cmd
}
