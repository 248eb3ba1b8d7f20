package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloo-solutions/nl2sparql/internal/schema"
	"github.com/spf13/cobra"
)

// CatalogCmd prints the static schema catalog.
func CatalogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the static schema catalog",
		Long: `Print the properties and classes offered to the generator before any
entity-specific properties are fetched. Reads SCHEMA_CATALOG_PATH or --file,
falling back to the built-in catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if file == "" {
				file = catalogPathFromEnv()
			}

			catalog, err := schema.LoadFile(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				output, _ := json.MarshalIndent(catalog, "", "  ")
				fmt.Fprintln(out, string(output))
				return nil
			}

			data, err := catalog.Marshal()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalog YAML file to load instead of the built-in one")
	bindEnv(cmd, "file", "NL2SPARQL_SCHEMA_CATALOG_PATH")

	return cmd
}

// catalogPathFromEnv mirrors the prefixed-then-bare lookup of the config
// package without requiring the rest of the configuration.
func catalogPathFromEnv() string {
	if p := os.Getenv("NL2SPARQL_SCHEMA_CATALOG_PATH"); p != "" {
		return p
	}
	return os.Getenv("SCHEMA_CATALOG_PATH")
}
