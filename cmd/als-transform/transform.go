package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"als-transform/internal/config"
	"als-transform/internal/expr"
	"als-transform/internal/metrics"
	"als-transform/internal/pipeline"
	"als-transform/internal/record"
	"als-transform/internal/report"
	"als-transform/internal/schema"
	"als-transform/internal/sink"
)

type transformOptions struct {
	schemaPath      string
	class           string
	engine          string
	format          string
	itemsKey        string
	idFields        []string
	mergeKeys       []string
	output          string
	logErrors       string
	source          string
	sinkKind        string
	strict          bool
	fullSchema      bool
	caseInsensitive bool
	workers         int
}

// job is a fully resolved run: config, profile and flags merged.
type job struct {
	inputPath   string
	mappingPath string
	schemaPath  string
	class       string
	engine      string
	format      string
	itemsKey    string
	mergeKeys   []string
	sourceName  string

	pipeline  pipeline.Options
	validator schema.Options
	sink      sink.Config
	exprOpts  expr.Options
	metrics   bool
	// emit writes records to the sink; validate only reports.
	emit bool
}

func newTransformCmd(a *app) *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "transform <input-file> [mapping-file]",
		Short: "Map input records, validate them and emit the result",
		Long: "Map input records with a JSONata or field-map expression, validate every mapped\n" +
			"record against the target schema and write the records to stdout, a file or PostgreSQL.\n" +
			"The mapping file may be omitted when --source names a configured profile.",
		Args: cobra.RangeArgs(1, 2),
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

	addTransformFlags(cmd, &opts)

	return cmd
}

func addTransformFlags(cmd *cobra.Command, o *transformOptions) {
	fs := cmd.Flags()
	fs.StringVar(&o.schemaPath, "schema", "", "target JSON Schema file")
	fs.StringVar(&o.class, "class", "", "validate against $defs/<class> of the schema")
	fs.StringVar(&o.engine, "engine", "", "mapping engine: jsonata or fieldmap (default from file extension)")
	fs.StringVar(&o.format, "format", "", "input format: json, ndjson or csv (default from file extension)")
	fs.StringVar(&o.itemsKey, "items-key", "", "read records from this key of the input object")
	fs.StringArrayVar(&o.idFields, "id-field", nil, "input field naming a record in the error log (repeatable)")
	fs.StringArrayVar(&o.mergeKeys, "merge-key", nil, "column joining the CSV files of a directory input (repeatable)")
	fs.StringVarP(&o.output, "output", "o", "", "write records to this file instead of stdout")
	fs.StringVar(&o.logErrors, "log-errors", "", "write the error log to this path")
	fs.StringVar(&o.source, "source", "", "use the named source profile from the config")
	fs.StringVar(&o.sinkKind, "sink", "", "record sink: json or postgres")
	fs.BoolVar(&o.strict, "strict", false, "withhold failing records and abort on the first transform error")
	fs.BoolVar(&o.fullSchema, "full-schema", false, "also report keywords outside the core subset")
	fs.BoolVar(&o.caseInsensitive, "case-insensitive-enums", false, "match string enums ignoring case")
	fs.IntVar(&o.workers, "workers", 0, "records evaluated concurrently")
}

// resolveJob layers config, the selected source profile and flags.
func resolveJob(cmd *cobra.Command, cfg *config.Config, o *transformOptions, args []string, needMapping bool) (*job, error) {
	j := &job{
		inputPath: args[0],
		mergeKeys: cfg.Run.MergeKeys,
		pipeline: pipeline.Options{
			Strict:       cfg.Run.Strict,
			ErrorLogPath: cfg.Run.ErrorLog,
			Workers:      cfg.Run.Workers,
			IDFields:     cfg.Run.IDFields,
		},
		validator: schema.Options{
			Full:                 cfg.Run.FullSchema,
			CaseInsensitiveEnums: cfg.Run.CaseInsensitiveEnums,
		},
		sink:     cfg.Sink,
		exprOpts: expr.Options{SubjectIDStyle: cfg.SubjectIDStyle()},
		metrics:  cfg.Metrics.Enabled,
		emit:     needMapping,
	}

	if o.source != "" {
		p, err := cfg.Source(o.source)
		if err != nil {
			return nil, err
		}

		j.sourceName = o.source
		j.mappingPath = p.Mapping
		j.engine = p.Engine
		j.schemaPath = p.Schema
		j.class = p.Class
		j.itemsKey = p.ItemsKey

		if len(p.IDFields) > 0 {
			j.pipeline.IDFields = p.IDFields
		}

		if len(p.MergeKeys) > 0 {
			j.mergeKeys = p.MergeKeys
		}
	}

	if len(args) > 1 {
		j.mappingPath = args[1]
	}

	if !needMapping {
		j.mappingPath = ""
	}

	flags := cmd.Flags()

	setString := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}

	setString("schema", &j.schemaPath, o.schemaPath)
	setString("class", &j.class, o.class)
	setString("engine", &j.engine, o.engine)
	setString("format", &j.format, o.format)
	setString("items-key", &j.itemsKey, o.itemsKey)
	setString("log-errors", &j.pipeline.ErrorLogPath, o.logErrors)
	setString("output", &j.sink.Output, o.output)
	setString("sink", &j.sink.Kind, o.sinkKind)

	if flags.Changed("id-field") {
		j.pipeline.IDFields = o.idFields
	}

	if flags.Changed("merge-key") {
		j.mergeKeys = o.mergeKeys
	}

	if flags.Changed("strict") {
		j.pipeline.Strict = o.strict
	}

	if flags.Changed("full-schema") {
		j.validator.Full = o.fullSchema
	}

	if flags.Changed("case-insensitive-enums") {
		j.validator.CaseInsensitiveEnums = o.caseInsensitive
	}

	if flags.Changed("workers") {
		j.pipeline.Workers = o.workers
	}

	if j.schemaPath == "" {
		return nil, errors.New("--schema is required")
	}

	if needMapping && j.mappingPath == "" {
		return nil, errors.New("mapping file is required (argument or --source)")
	}

	if j.emit && j.sink.Kind == sink.KindPostgres && j.sink.DSN == "" {
		return nil, errors.New("postgres sink needs sink.dsn (config or ALS_TRANSFORM_SINK_DSN)")
	}

	return j, nil
}

// loaded holds everything read from disk before the first record runs.
type loaded struct {
	eval      expr.Evaluator
	mapping   *expr.Mapping
	validator *schema.Validator
	inputs    []record.Input
}

func (a *app) load(j *job, logger *zap.Logger) (*loaded, error) {
	doc, err := schema.LoadFile(j.schemaPath, schema.LoadOptions{Class: j.class})
	if err != nil {
		return nil, loadErr(err)
	}

	l := &loaded{validator: schema.NewValidator(doc, j.validator)}

	if j.mappingPath != "" {
		ev, m, err := expr.Load(j.mappingPath, j.engine, j.exprOpts)
		if err != nil {
			return nil, loadErr(err)
		}

		if m.Source == "" {
			m.Source = j.sourceName
		}

		if m.Target == "" {
			m.Target = doc.Class
		}

		l.eval, l.mapping = ev, m

		logger.Debug("mapping loaded", zap.String("mapping", m.Name()), zap.String("engine", m.Engine))
	}

	l.inputs, err = record.Load(j.inputPath, a.stdin, record.Options{
		Format:    j.format,
		ItemsKey:  j.itemsKey,
		MergeKeys: j.mergeKeys,
		Logger:    logger,
	})
	if err != nil {
		return nil, loadErr(err)
	}

	logger.Debug("inputs loaded", zap.String("path", j.inputPath), zap.Int("records", len(l.inputs)))

	return l, nil
}

// runJob loads, runs and emits one job. Load failures carry exit code 2.
func (a *app) runJob(ctx context.Context, j *job, logger *zap.Logger) (pipeline.Status, error) {
	l, err := a.load(j, logger)
	if err != nil {
		return 0, err
	}

	opts := j.pipeline
	opts.Logger = logger

	if j.metrics {
		scope, closer := metrics.NewScope(logger)
		defer func() { _ = closer.Close() }()

		opts.Metrics = scope
	}

	out, err := pipeline.New(l.eval, l.validator, opts).Run(ctx, l.inputs)
	if err != nil {
		return 0, runErr(err)
	}

	if j.emit {
		if err := a.emit(ctx, j, l, out); err != nil {
			return 0, runErr(err)
		}
	}

	if err := report.Write(a.stderr, out, report.StylesFor(a.stderr)); err != nil {
		return 0, runErr(err)
	}

	return out.Status, nil
}

func (a *app) emit(ctx context.Context, j *job, l *loaded, out *pipeline.Outcome) error {
	s, err := sink.Open(ctx, j.sink, a.stdout)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	b := sink.Batch{RunID: out.RunID, Records: out.Records}
	if l.mapping != nil {
		b.Source, b.Target = l.mapping.Source, l.mapping.Target
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if err := s.Write(ctx, b); err != nil {
		return fmt.Errorf("emit records: %w", err)
	}

	return nil
}
