package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/internal/query"
)

type queryFlags struct {
	schema    string
	seeds     []string
	sort      string
	namespace string
}

func newQueryCmd() *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query <entity> [field=expression ...]",
		Short: "Filter and sort seeded instances of an entity",
		Long: `Load a schema, seed instances from JSONL files, and print the instances of
an entity that match every filter.

Expressions: value (equal), !value (not equal), >value, <value, >=value, <=value.
Sort: +field or field (ascending), -field (descending). A sortby=... parameter
is accepted in place of --sort.

Examples:
  thingstore query thing int=">=2" --schema things.yaml --seed things.jsonl
  thingstore query thing enum=two sortby=-int --schema things.yaml --seed things.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, f, args[0], args[1:])
		},
	}
	cmd.Flags().StringVar(&f.schema, "schema", "", "schema YAML file (required)")
	cmd.Flags().StringArrayVar(&f.seeds, "seed", nil, "JSONL seed file (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort expression")
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "", "namespace to seed and query")
	return cmd
}

func runQuery(cmd *cobra.Command, f queryFlags, entity string, params []string) error {
	assignments, err := parseAssignments(params)
	if err != nil {
		return err
	}
	filters, sortExpr := query.SplitParams(assignments)
	if f.sort != "" {
		if sortExpr != "" {
			return errors.Wrap(errUsage, "give either --sort or sortby=, not both")
		}
		sortExpr = f.sort
	}

	store, err := openStore(f.schema, f.seeds, f.namespace)
	if err != nil {
		return err
	}
	def, err := store.Schema().Entity(entity)
	if err != nil {
		return err
	}
	handles, err := store.Query(f.namespace, def.Name(), filters, sortExpr)
	if err != nil {
		return err
	}
	current.log.Debugw("query evaluated",
		logging.FieldEntity, def.Name(),
		logging.FieldCount, len(handles))
	return printInstances(cmd.OutOrStdout(), store, def, handles)
}
