package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/schemafile"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <file>",
		Short: "Validate a schema file and print its entities",
		Long: "Build the schema described by a YAML file, reporting the first definition error,\n" +
			"and print the normalized entities, fields and relationships.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := schemafile.Load(args[0])
			if err != nil {
				return err
			}
			doc := schemafile.Describe(schema)
			current.log.Debugw("schema built", "path", args[0], "entities", len(doc.Entities))
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), doc)
			}
			data, err := yaml.Marshal(doc)
			if err != nil {
				return errors.Wrap(err, "marshal schema")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
