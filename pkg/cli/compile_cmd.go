package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"cubesql/internal/querydoc"
	"cubesql/internal/service/query"
)

const defaultDialect = "duckdb"

func newCompileCmd() *cobra.Command {
	var (
		file    string
		dialect string
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query document to SQL",
		Long: "Compile a YAML or JSON query document to SQL without running it.\n" +
			"The dialect comes from --dialect, then the document, then duckdb.",
		Example: "  cubesql compile -f sales.yaml --dialect clickhouse\n" +
			"  cat sales.json | cubesql compile -f -",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := querydoc.Load(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			q, err := doc.ToQuery()
			if err != nil {
				return err
			}

			target := firstNonEmpty(dialect, doc.Dialect, defaultDialect)
			svc, err := query.NewService(query.ServiceDeps{Dialect: target, Logger: slog.Default()})
			if err != nil {
				return err
			}
			plan, err := svc.Explain(cmd.Context(), q, "")
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), plan)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), plan.SQL)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Query document path (- for stdin)")
	cmd.Flags().StringVar(&dialect, "dialect", "", "Target SQL dialect")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
