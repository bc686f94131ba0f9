package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cubesql/internal/domain"
	"cubesql/internal/engine"
	"cubesql/internal/querydoc"
	"cubesql/internal/service/query"
)

type runOptions struct {
	file    string
	backend string
	dbPath  string
	seed    bool
	timeout time.Duration
	server  string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	backend := newEnumValue(string(engine.KindDuckDB), string(engine.KindDuckDB), string(engine.KindSQLite))

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile and execute a query document",
		Long: "Run a query document on an embedded engine, or on a cubesql server\n" +
			"when --server (or CUBESQL_SERVER) is set.",
		Example: "  cubesql run -f sales.yaml --seed\n" +
			"  cubesql run -f sales.yaml --backend sqlite --db cubesql.sqlite\n" +
			"  cubesql run -f sales.json --server http://localhost:8080 -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.backend = backend.String()
			if !cmd.Flags().Changed("server") {
				opts.server = os.Getenv("CUBESQL_SERVER")
			}

			doc, err := querydoc.Load(opts.file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var res *query.Result
			if opts.server != "" {
				res, err = newClient(opts.server).run(cmd.Context(), doc)
			} else {
				res, err = runLocal(cmd.Context(), opts, doc)
			}
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			frame := res.Frame
			if frame == nil {
				frame = &domain.DataFrame{}
			}
			return printFrame(cmd.OutOrStdout(), frame)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Query document path (- for stdin)")
	cmd.Flags().Var(backend, "backend", "Embedded engine (duckdb, sqlite)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Database file; empty runs DuckDB in memory")
	cmd.Flags().BoolVar(&opts.seed, "seed", false, "Load the demo star schema rows into an empty database")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Query timeout")
	cmd.Flags().StringVar(&opts.server, "server", "", "cubesql server URL")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runLocal(ctx context.Context, opts runOptions, doc *querydoc.Document) (*query.Result, error) {
	q, err := doc.ToQuery()
	if err != nil {
		return nil, err
	}
	kind, err := engine.ParseKind(opts.backend)
	if err != nil {
		return nil, err
	}

	backend, err := engine.Open(ctx, engine.Options{Kind: kind, Path: opts.dbPath, Seed: opts.seed}, slog.Default())
	if err != nil {
		return nil, err
	}
	defer func() { _ = backend.Close() }()

	svc, err := query.NewService(query.ServiceDeps{
		Backend: backend,
		Dialect: kind.DefaultDialect(),
		Timeout: opts.timeout,
		Logger:  slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	return svc.Run(ctx, q, doc.Dialect)
}
