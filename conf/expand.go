package conf

import (
	"fmt"
	"regexp"
	"strings"
)

// Tree is a nested configuration mapping as decoded from YAML.
type Tree = map[string]interface{}

// LookupFunc resolves a name that is not defined anywhere in the
// configuration, usually by asking the shell of the remote host.
type LookupFunc func(name string) (string, error)

// maxDepth bounds the chain of placeholders that a single value may
// traverse while it is being resolved.
const maxDepth = 64

var placeholderRe = regexp.MustCompile(`\$\{(\w*)\}`)

// scope is one nesting level of the tree being expanded. Names are
// looked up in the scope's own mapping first, then in the enclosing ones.
type scope struct {
	vars   Tree
	parent *scope
	id     int
}

func (s *scope) guard(name string) string {
	return fmt.Sprintf("%d/%s", s.id, name)
}

type lookupResult struct {
	value string
	err   error
}

// expander holds the state of one expansion pass. The external
// lookup cache lives and dies with it.
type expander struct {
	lookup    LookupFunc
	cache     map[string]lookupResult
	resolving map[string]bool
	depth     int
	scopes    int
}

// Expand returns a copy of tree where every `${NAME}` token is replaced
// by the value of NAME, and where "true"/"false" strings become booleans.
//
// overrides replace whole top-level keys before expansion starts. NAME is
// searched among the keys of the mapping holding the value, then among
// the keys of the enclosing mappings, and finally through lookup. Each
// external name is looked up at most once per call.
func Expand(tree Tree, overrides Tree, lookup LookupFunc) (Tree, error) {
	src := make(Tree, len(tree)+len(overrides))
	for k, v := range tree {
		src[k] = v
	}
	for k, v := range overrides {
		src[k] = v
	}

	e := &expander{
		lookup:    lookup,
		cache:     map[string]lookupResult{},
		resolving: map[string]bool{},
	}
	return e.mapping(src, nil)
}

func (e *expander) newScope(vars Tree, parent *scope) *scope {
	e.scopes++
	return &scope{vars: vars, parent: parent, id: e.scopes}
}

func (e *expander) mapping(vars Tree, parent *scope) (Tree, error) {
	sc := e.newScope(vars, parent)
	res := make(Tree, len(vars))
	for k, v := range vars {
		guard := sc.guard(k)
		e.resolving[guard] = true
		expanded, err := e.value(k, v, sc)
		delete(e.resolving, guard)
		if err != nil {
			return nil, err
		}
		res[k] = expanded
	}
	return res, nil
}

func (e *expander) value(key string, v interface{}, sc *scope) (interface{}, error) {
	switch val := v.(type) {
	case string:
		s, err := e.str(key, val, sc)
		if err != nil {
			return nil, err
		}
		return coerceBool(s), nil
	case Tree:
		return e.mapping(val, sc)
	case map[interface{}]interface{}:
		return e.mapping(stringKeys(val), sc)
	case []interface{}:
		res := make([]interface{}, len(val))
		for i, item := range val {
			expanded, err := e.value(fmt.Sprintf("%s[%d]", key, i), item, sc)
			if err != nil {
				return nil, err
			}
			res[i] = expanded
		}
		return res, nil
	default:
		return v, nil
	}
}

// str substitutes every placeholder in s. Substituted values are
// already fully resolved, so one pass is enough.
func (e *expander) str(key, s string, sc *scope) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var failure error
	out := placeholderRe.ReplaceAllStringFunc(s, func(token string) string {
		if failure != nil {
			return token
		}
		name := placeholderRe.FindStringSubmatch(token)[1]
		resolved, err := e.resolve(key, name, sc)
		if err != nil {
			failure = err
			return token
		}
		return resolved
	})
	return out, failure
}

func (e *expander) resolve(key, name string, sc *scope) (string, error) {
	for s := sc; s != nil; s = s.parent {
		raw, found := s.vars[name]
		if !found {
			continue
		}

		// a definition being resolved cannot serve itself: fall back to
		// the enclosing definitions, then to the external source.
		guard := s.guard(name)
		if e.resolving[guard] {
			continue
		}
		if e.depth >= maxDepth {
			return "", NewConfigError(key, fmt.Sprintf("placeholder `${%s}` nests too deeply", name), nil)
		}

		e.resolving[guard] = true
		e.depth++
		defer func() {
			delete(e.resolving, guard)
			e.depth--
		}()

		switch val := raw.(type) {
		case string:
			return e.str(name, val, s)
		case nil:
			return "", nil
		case Tree, map[interface{}]interface{}, []interface{}:
			return "", NewConfigError(key, fmt.Sprintf("placeholder `${%s}` refers to a non scalar value", name), nil)
		default:
			return fmt.Sprint(val), nil
		}
	}

	return e.external(key, name)
}

func (e *expander) external(key, name string) (string, error) {
	if res, cached := e.cache[name]; cached {
		return res.value, res.err
	}

	var res lookupResult
	if e.lookup == nil {
		res.err = NewConfigError(key, fmt.Sprintf("cannot resolve placeholder `${%s}`", name), nil)
	} else {
		value, err := e.lookup(name)
		if err != nil {
			res.err = NewConfigError(key, fmt.Sprintf("cannot resolve placeholder `${%s}`", name), err)
		} else {
			res.value = value
		}
	}
	e.cache[name] = res
	return res.value, res.err
}

func coerceBool(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func stringKeys(m map[interface{}]interface{}) Tree {
	res := make(Tree, len(m))
	for k, v := range m {
		res[fmt.Sprint(k)] = v
	}
	return res
}
