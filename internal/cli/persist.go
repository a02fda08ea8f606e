package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/persistence"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

type persistFlags struct {
	schema    string
	seeds     []string
	namespace string
	id        string
}

func newPersistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Save or load single records through the configured strategy",
	}
	cmd.AddCommand(newPersistSaveCmd())
	cmd.AddCommand(newPersistLoadCmd())
	cmd.AddCommand(newPersistStatusCmd())
	return cmd
}

func addStoreFlags(cmd *cobra.Command, f *persistFlags) {
	cmd.Flags().StringVar(&f.schema, "schema", "", "schema YAML file (required)")
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "", "namespace to use")
}

func newPersistSaveCmd() *cobra.Command {
	var f persistFlags
	cmd := &cobra.Command{
		Use:   "save <entity> <key>",
		Short: "Save the instance with the given primary key",
		Long: "Seed the store, find the instance of <entity> whose primary key is <key>,\n" +
			"and save it under --id (default: <entity>-<key>).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersistSave(cmd, f, args[0], args[1])
		},
	}
	addStoreFlags(cmd, &f)
	cmd.Flags().StringArrayVar(&f.seeds, "seed", nil, "JSONL seed file (repeatable)")
	cmd.Flags().StringVar(&f.id, "id", "", "external identifier for the record")
	return cmd
}

func runPersistSave(cmd *cobra.Command, f persistFlags, entity, key string) error {
	store, err := openStore(f.schema, f.seeds, f.namespace)
	if err != nil {
		return err
	}
	h, err := store.FindByPrimaryKey(f.namespace, entity, key)
	if err != nil {
		return err
	}
	id := f.id
	if id == "" {
		id = h.Entity + "-" + key
	}

	layer, err := openLayer(cmd.Context())
	if err != nil {
		return err
	}
	defer layer.Close()

	out := layer.SaveInstance(cmd.Context(), store, h, id)
	return report(cmd.OutOrStdout(), out, nil)
}

func newPersistLoadCmd() *cobra.Command {
	var f persistFlags
	cmd := &cobra.Command{
		Use:   "load <id>",
		Short: "Load a record and restore it into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersistLoad(cmd, f, args[0])
		},
	}
	addStoreFlags(cmd, &f)
	return cmd
}

func runPersistLoad(cmd *cobra.Command, f persistFlags, id string) error {
	store, err := openStore(f.schema, nil, f.namespace)
	if err != nil {
		return err
	}
	layer, err := openLayer(cmd.Context())
	if err != nil {
		return err
	}
	defer layer.Close()

	h, out := layer.LoadInto(cmd.Context(), store, f.namespace, id)
	if !out.Success {
		return report(cmd.OutOrStdout(), out, nil)
	}
	inst, err := store.Get(h)
	if err != nil {
		return err
	}
	v := view(store, inst)
	if def, err := store.Schema().Entity(h.Entity); err == nil {
		v.order = def.FieldNames()
	}
	return report(cmd.OutOrStdout(), out, &v)
}

func newPersistStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the effective persistence strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, err := openLayer(cmd.Context())
			if err != nil {
				return err
			}
			defer layer.Close()
			status := struct {
				Strategy    string `json:"strategy"`
				AutoPersist bool   `json:"auto_persist"`
			}{string(layer.Strategy()), layer.WillAutoPersist()}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "strategy: %s\nauto-persist: %t\n", status.Strategy, status.AutoPersist)
			return nil
		},
	}
}

// openLayer starts the persistence layer from the session settings.
func openLayer(ctx context.Context) (*persistence.Layer, error) {
	cfg, err := persistenceConfig(*current.settings)
	if err != nil {
		return nil, err
	}
	return persistence.New(ctx, cfg, persistence.WithLogger(current.log))
}

type outcomeView struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Record   *types.Record `json:"record,omitempty"`
	Instance *instanceView `json:"instance,omitempty"`
}

// report prints an outcome and turns a failed one into errPersistence.
func report(w io.Writer, out types.Outcome, inst *instanceView) error {
	if flags.jsonMode {
		if err := printJSON(w, outcomeView{out.Success, out.Message, out.Record, inst}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, out.Message)
		if inst != nil {
			for _, name := range inst.order {
				if value, ok := inst.Fields[name]; ok {
					fmt.Fprintf(w, "  %s: %s\n", name, value)
				}
			}
		}
	}
	if !out.Success {
		return errors.Wrap(errPersistence, out.Message)
	}
	return nil
}
