// Package seed loads instances from JSONL files into a store. Each line
// holds one instance:
//
//	{"entity":"thing","fields":{"id":"1","int":"3"},"links":[{"relationship":"owner","entity":"person","key":"7"}]}
//
// Generated fields present in a line keep their values. Links are applied
// after every line is loaded and resolve their target by primary key.
package seed

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Line is one decoded JSONL line.
type Line struct {
	Entity string            `json:"entity"`
	Fields map[string]string `json:"fields"`
	Links  []Link            `json:"links,omitempty"`
}

// Link names a relationship and its target by entity and primary key.
type Link struct {
	Relationship string `json:"relationship"`
	Entity       string `json:"entity"`
	Key          string `json:"key"`
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line.
// Malformed lines are skipped.
func readJSONL(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var lines []Line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line Line
		if err := json.Unmarshal(raw, &line); err != nil || line.Entity == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scanning %s", path)
	}
	return lines, nil
}

// LoadFile loads path into namespace and returns the handles created, in
// file order.
func LoadFile(store types.Store, namespace, path string) ([]types.Handle, error) {
	lines, err := readJSONL(path)
	if err != nil {
		return nil, err
	}
	return Load(store, namespace, lines)
}

// Load restores lines into namespace, then applies their links. The first
// failure stops loading; instances already restored stay in the store.
func Load(store types.Store, namespace string, lines []Line) ([]types.Handle, error) {
	handles := make([]types.Handle, 0, len(lines))
	for i, line := range lines {
		h, err := store.Restore(namespace, types.Record{Entity: line.Entity, Fields: line.Fields})
		if err != nil {
			return handles, errors.Wrapf(err, "seed line %d", i+1)
		}
		handles = append(handles, h)
	}

	for i, line := range lines {
		for _, l := range line.Links {
			target, err := store.FindByPrimaryKey(namespace, l.Entity, l.Key)
			if err != nil {
				return handles, errors.Wrapf(err, "seed line %d link %q", i+1, l.Relationship)
			}
			if err := store.Link(handles[i], l.Relationship, target); err != nil {
				return handles, errors.Wrapf(err, "seed line %d link %q", i+1, l.Relationship)
			}
		}
	}
	return handles, nil
}
