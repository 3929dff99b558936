package conf

// This module contains the expanded experiment
// configuration and the accessors the run steps
// use to read and update it.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Experiment is the expanded configuration of one experiment.
// Run steps also record their state in it (`restart`, `finish`,
// `mode`, job ids).
type Experiment Tree

// Job id keys tracked while a segment runs.
const (
	JobIDModel     = "JobID_model"
	JobIDPosAtmos  = "JobID_pos_atmos"
	JobIDPosOcean  = "JobID_pos_ocean"
	ensembleKey    = "ensemble"
	expfilesKey    = "expfiles"
	namelistFile   = "file"
	namelistVarKey = "vars"
)

// JobIDKeys lists the keys holding scheduler job ids.
var JobIDKeys = []string{JobIDModel, JobIDPosAtmos, JobIDPosOcean}

// NamelistConf is a `{file: path, vars: {section: {key: value}}}`
// entry of an experiment.
type NamelistConf struct {
	File string
	Vars map[string]Tree
}

// Load decodes a YAML experiment document and expands it.
// The `ensemble` mapping, if present, is kept aside: use Member
// to obtain the configuration of one of its members.
func Load(doc []byte, overrides Tree, lookup LookupFunc) (Experiment, error) {
	var raw Tree
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, NewConfigError("", "malformed YAML", err)
	}
	if raw == nil {
		return nil, NewConfigError("", "empty experiment configuration", nil)
	}

	expanded, err := Expand(raw, overrides, lookup)
	if err != nil {
		return nil, err
	}
	return Experiment(expanded), nil
}

// Dump encodes the experiment as YAML.
func (exp Experiment) Dump() ([]byte, error) {
	return yaml.Marshal(Tree(exp))
}

// Has ...
func (exp Experiment) Has(key string) bool {
	v, ok := exp[key]
	return ok && v != nil
}

// Require returns a ConfigError naming every key in keys
// missing from the experiment.
func (exp Experiment) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if !exp.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return NewConfigError(strings.Join(missing, ", "), "missing required key", nil)
}

// Str returns the value of key formatted as a string,
// or "" when key is missing.
func (exp Experiment) Str(key string) string {
	v, ok := exp[key]
	if !ok || v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the value of key as an integer.
func (exp Experiment) Int(key string) (int, error) {
	switch v := exp[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, NewConfigError(key, fmt.Sprintf("`%s` is not an integer", v), err)
		}
		return n, nil
	case nil:
		return 0, NewConfigError(key, "missing required key", nil)
	default:
		return 0, NewConfigError(key, fmt.Sprintf("`%v` is not an integer", v), nil)
	}
}

// Bool returns the value of key as a boolean. Missing keys are false.
func (exp Experiment) Bool(key string) bool {
	switch v := exp[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case int:
		return v != 0
	}
	return false
}

// Set ...
func (exp Experiment) Set(key string, value interface{}) {
	exp[key] = value
}

// Delete ...
func (exp Experiment) Delete(key string) {
	delete(exp, key)
}

// Sub returns the nested mapping stored at key, or nil.
func (exp Experiment) Sub(key string) Tree {
	m, _ := asTree(exp[key])
	return m
}

// Type returns the model variant selected by the `type` key.
func (exp Experiment) Type() (ModelType, error) {
	return ParseModelType(exp.Str("type"))
}

// Mode returns the run mode; anything other than "warm" is cold.
func (exp Experiment) Mode() RunMode {
	if strings.Contains(exp.Str("mode"), string(Warm)) {
		return Warm
	}
	return Cold
}

// SetMode ...
func (exp Experiment) SetMode(mode RunMode) {
	exp["mode"] = string(mode)
}

// Date parses the YYYYMMDDHH date stored at key.
func (exp Experiment) Date(key string) (time.Time, error) {
	s := exp.Str(key)
	if s == "" {
		return time.Time{}, NewConfigError(key, "missing required key", nil)
	}
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, NewConfigError(key, fmt.Sprintf("`%s` is not a YYYYMMDDHH date", s), err)
	}
	return t, nil
}

// SetDate stores t at key as YYYYMMDDHH.
func (exp Experiment) SetDate(key string, t time.Time) {
	exp[key] = FormatDate(t)
}

// Begin returns the date the current segment integrates from:
// `restart` for warm runs, `start` for cold ones.
func (exp Experiment) Begin() (time.Time, error) {
	if exp.Mode() == Warm {
		return exp.Date("restart")
	}
	return exp.Date("start")
}

// RestartInterval parses the `restart_interval` key.
func (exp Experiment) RestartInterval() (Interval, error) {
	return ParseInterval(exp.Str("restart_interval"))
}

// JobIDs returns the non-empty job ids currently tracked,
// in the order of JobIDKeys.
func (exp Experiment) JobIDs() []string {
	var ids []string
	for _, k := range JobIDKeys {
		if id := exp.Str(k); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Namelist returns the namelist entry stored at key.
func (exp Experiment) Namelist(key string) (NamelistConf, error) {
	entry := exp.Sub(key)
	if entry == nil {
		return NamelistConf{}, NewConfigError(key, "missing required key", nil)
	}

	nmlConf := NamelistConf{Vars: map[string]Tree{}}
	file, _ := entry[namelistFile].(string)
	if file == "" {
		return NamelistConf{}, NewConfigError(key+"."+namelistFile, "missing required key", nil)
	}
	nmlConf.File = file

	vars := Experiment(entry).Sub(namelistVarKey)
	for section := range vars {
		nmlConf.Vars[section] = Experiment(vars).Sub(section)
	}
	return nmlConf, nil
}

// Sections returns the names of the namelist sections overridden,
// sorted.
func (nc NamelistConf) Sections() []string {
	res := make([]string, 0, len(nc.Vars))
	for s := range nc.Vars {
		res = append(res, s)
	}
	sort.Strings(res)
	return res
}

// Clone returns a deep copy of the experiment.
func (exp Experiment) Clone() Experiment {
	return Experiment(DeepCopy(Tree(exp)))
}

// Members returns the names of the ensemble members, sorted.
func (exp Experiment) Members() []string {
	ens := exp.Sub(ensembleKey)
	res := make([]string, 0, len(ens))
	for name := range ens {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Base returns a copy of the experiment without its ensemble.
func (exp Experiment) Base() Experiment {
	res := exp.Clone()
	delete(res, ensembleKey)
	return res
}

// Member returns the configuration of ensemble member `name`: the base
// experiment merged with the member overrides, with `name` set to the
// member name.
func (exp Experiment) Member(name string) (Experiment, error) {
	ens := exp.Sub(ensembleKey)
	overrides, ok := ens[name]
	if !ok {
		return nil, NewConfigError(ensembleKey, fmt.Sprintf("unknown ensemble member `%s`", name), nil)
	}

	res := exp.Base()
	if m, isTree := asTree(overrides); isTree {
		Merge(Tree(res), DeepCopy(m))
	}
	res["name"] = name
	return res, nil
}
