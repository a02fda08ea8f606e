package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/memory"
	"github.com/mesh-intelligence/thingstore/internal/schemafile"
	"github.com/mesh-intelligence/thingstore/internal/seed"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// openStore builds the schema at schemaPath and seeds namespace with the
// given JSONL files.
func openStore(schemaPath string, seeds []string, namespace string) (types.Store, error) {
	if schemaPath == "" {
		return nil, errors.Wrap(errUsage, "--schema is required")
	}
	schema, err := schemafile.Load(schemaPath)
	if err != nil {
		return nil, err
	}
	store := memory.NewStore(schema, memory.WithLogger(current.log))
	for _, path := range seeds {
		handles, err := seed.LoadFile(store, namespace, path)
		if err != nil {
			return nil, err
		}
		current.log.Debugw("seed loaded", "path", path, "count", len(handles))
	}
	return store, nil
}

// instanceView is the printed form of an instance.
type instanceView struct {
	Entity    string              `json:"entity"`
	State     string              `json:"state"`
	Fields    map[string]string   `json:"fields"`
	Relations map[string][]string `json:"relations,omitempty"`

	order []string
}

// view renders an instance; related instances are shown by primary key
// when their entity has one, otherwise by handle.
func view(store types.Store, inst *types.Instance) instanceView {
	v := instanceView{
		Entity: inst.Handle.Entity,
		State:  inst.State.String(),
		Fields: inst.Strings(),
	}
	for name, related := range inst.Relations {
		if len(related) == 0 {
			continue
		}
		if v.Relations == nil {
			v.Relations = make(map[string][]string)
		}
		for _, h := range related {
			v.Relations[name] = append(v.Relations[name], displayKey(store, h))
		}
	}
	return v
}

func displayKey(store types.Store, h types.Handle) string {
	def, err := store.Schema().Entity(h.Entity)
	if err != nil {
		return h.String()
	}
	pk, ok := def.PrimaryKey()
	if !ok {
		return h.String()
	}
	inst, err := store.Get(h)
	if err != nil {
		return h.String()
	}
	return inst.Value(pk.Name).String()
}

// printInstances writes instances as JSON or as a table whose columns
// follow the entity's field order.
func printInstances(w io.Writer, store types.Store, def *types.EntityDefinition, handles []types.Handle) error {
	views := make([]instanceView, 0, len(handles))
	for _, h := range handles {
		inst, err := store.Get(h)
		if err != nil {
			return err
		}
		views = append(views, view(store, inst))
	}

	if flags.jsonMode {
		return printJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := def.FieldNames()
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(names, "\t")))
	for _, v := range views {
		row := make([]string, len(names))
		for i, name := range names {
			row[i] = v.Fields[name]
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// parseAssignments turns ["a=1", "b=>2"] into a map. Only the first "="
// splits, so "b=>=2" maps b to ">=2".
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Wrapf(errUsage, "invalid parameter %q (expected field=expression)", arg)
		}
		out[key] = value
	}
	return out, nil
}
