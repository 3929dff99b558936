// Package nml reads and writes Fortran namelist files.
package nml

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Raw is a value written to the namelist exactly as it is,
// e.g. a list "2,4" or a real "1.0e-3".
type Raw string

// Group is a `&name ... /` block. Keys keep the order in which
// they were read or added.
type Group struct {
	Name   string
	keys   []string
	values map[string]interface{}
}

// NewGroup ...
func NewGroup(name string) *Group {
	return &Group{Name: name, values: map[string]interface{}{}}
}

func (g *Group) find(key string) (string, bool) {
	if _, ok := g.values[key]; ok {
		return key, true
	}
	for _, k := range g.keys {
		if strings.EqualFold(k, key) {
			return k, true
		}
	}
	return "", false
}

// Get returns the value of key. Keys are case insensitive.
func (g *Group) Get(key string) (interface{}, bool) {
	k, ok := g.find(key)
	if !ok {
		return nil, false
	}
	return g.values[k], true
}

// Has ...
func (g *Group) Has(key string) bool {
	_, ok := g.find(key)
	return ok
}

// Bool returns the value of key as a boolean; missing keys are false.
func (g *Group) Bool(key string) bool {
	v, _ := g.Get(key)
	b, _ := v.(bool)
	return b
}

// Int returns the value of key as an integer.
func (g *Group) Int(key string) (int, error) {
	v, ok := g.Get(key)
	if !ok {
		return 0, fmt.Errorf("key `%s` not found in group `%s`", key, g.Name)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case Raw:
		return strconv.Atoi(strings.TrimSpace(string(n)))
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	}
	return 0, fmt.Errorf("key `%s` in group `%s` is not an integer: %v", key, g.Name, v)
}

// Set assigns value to key, appending key when it is new.
func (g *Group) Set(key string, value interface{}) {
	if k, ok := g.find(key); ok {
		g.values[k] = value
		return
	}
	g.keys = append(g.keys, key)
	g.values[key] = value
}

// Delete ...
func (g *Group) Delete(key string) {
	k, ok := g.find(key)
	if !ok {
		return
	}
	delete(g.values, k)
	for i, name := range g.keys {
		if name == k {
			g.keys = append(g.keys[:i], g.keys[i+1:]...)
			break
		}
	}
}

// Keys ...
func (g *Group) Keys() []string {
	return append([]string(nil), g.keys...)
}

// File is a sequence of namelist groups.
type File struct {
	Groups []*Group
}

// Group returns the group called name, or nil.
func (f *File) Group(name string) *Group {
	for _, g := range f.Groups {
		if strings.EqualFold(g.Name, name) {
			return g
		}
	}
	return nil
}

// Ensure returns the group called name, appending an empty one
// if the file has none.
func (f *File) Ensure(name string) *Group {
	if g := f.Group(name); g != nil {
		return g
	}
	g := NewGroup(name)
	f.Groups = append(f.Groups, g)
	return g
}

// Overlay sets every key of vars, a mapping from group name to
// key values, into the file. Keys and groups missing from the file
// are added; other keys are left untouched. It returns the
// `group.key` names that were added.
func (f *File) Overlay(vars map[string]map[string]interface{}) []string {
	var added []string
	groups := make([]string, 0, len(vars))
	for name := range vars {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	for _, name := range groups {
		g := f.Ensure(name)
		keys := make([]string, 0, len(vars[name]))
		for k := range vars[name] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !g.Has(k) {
				added = append(added, name+"."+k)
			}
			g.Set(k, vars[name][k])
		}
	}
	return added
}

// Encode writes the file in namelist syntax. Groups named in order
// come first, in that order; the others follow in file order.
func (f *File) Encode(order ...string) string {
	var groups []*Group
	seen := map[*Group]bool{}
	for _, name := range order {
		if g := f.Group(name); g != nil && !seen[g] {
			groups = append(groups, g)
			seen[g] = true
		}
	}
	for _, g := range f.Groups {
		if !seen[g] {
			groups = append(groups, g)
		}
	}

	var out strings.Builder
	for i, g := range groups {
		if i > 0 {
			out.WriteString("\n")
		}
		fmt.Fprintf(&out, " &%s\n", g.Name)
		for _, k := range g.keys {
			v := g.values[k]
			if v == nil {
				continue
			}
			fmt.Fprintf(&out, "    %s = %s,\n", k, FormatValue(v))
		}
		out.WriteString(" /\n")
	}
	return out.String()
}

// FormatValue formats v as a namelist value.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case Raw:
		return string(val)
	case bool:
		if val {
			return ".true."
		}
		return ".false."
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = FormatValue(item)
		}
		return strings.Join(items, ", ")
	}
	return fmt.Sprint(v)
}
