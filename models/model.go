// Package models implements the steps that differ between the
// atmosphere, ocean and coupled variants of an experiment.
package models

import (
	"fmt"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/scheduler"
	"github.com/meteocima/virtual-server/vpath"
)

// Model is the set of steps a variant implements. Every step
// does nothing when vs.Err is set, and records its failure there.
type Model interface {
	Type() conf.ModelType
	// Prepare creates the directories of the experiment
	// and stages its template files.
	Prepare(vs *remote.Context, exp conf.Experiment)
	// Compile builds the model and its pre and post-processing tools.
	Compile(vs *remote.Context, exp conf.Experiment)
	PrepareNamelist(vs *remote.Context, exp conf.Experiment)
	// RunModel submits the model and records its job id.
	RunModel(vs *remote.Context, exp conf.Experiment)
	// RunPost submits post-processing, to run after the model.
	RunPost(vs *remote.Context, exp conf.Experiment)
	// CheckRestart verifies the restart files match the date
	// the segment starts from.
	CheckRestart(vs *remote.Context, exp conf.Experiment)
	// PrepareRestart stages the restart files written by the last
	// segment as inputs of the next one.
	PrepareRestart(vs *remote.Context, exp conf.Experiment)
	Archive(vs *remote.Context, exp conf.Experiment)
	Clean(vs *remote.Context, exp conf.Experiment)
	Progress(vs *remote.Context, exp conf.Experiment) (time.Time, bool)
}

// ForType returns the variant implementing t.
func ForType(t conf.ModelType, sched scheduler.PBS) (Model, error) {
	switch t {
	case conf.Atmos:
		return &Atmos{Sched: sched}, nil
	case conf.Ocean:
		return &Ocean{Sched: sched}, nil
	case conf.Coupled:
		return NewCoupled(sched), nil
	}
	return nil, fmt.Errorf("%w: `%s`", conf.ErrUnknownModelType, t)
}

// RestartMismatchError is returned when the restart files of an
// experiment are not at the date a segment starts from.
type RestartMismatchError struct {
	File     string
	Expected string
	Found    string
}

func (e *RestartMismatchError) Error() string {
	return fmt.Sprintf("restart file `%s` is at %s, expected %s", e.File, e.Found, e.Expected)
}

// envOf returns the scalar values of keys found in exp,
// to be exported to the environment of a command.
func envOf(exp conf.Experiment, keys ...string) map[string]string {
	env := map[string]string{}
	for _, k := range keys {
		if !exp.Has(k) {
			continue
		}
		switch exp[k].(type) {
		case conf.Tree, map[interface{}]interface{}, []interface{}:
			continue
		}
		env[k] = exp.Str(k)
	}
	return env
}

// scriptOpts runs a command in cwd, after exporting keys of exp and
// sourcing the file configured at envKey.
func scriptOpts(exp conf.Experiment, cwd vpath.VirtualPath, envKey string, keys ...string) *remote.RunOptions {
	opts := &remote.RunOptions{Cwd: cwd.Path, Env: envOf(exp, keys...)}
	if file := exp.Str(envKey); file != "" {
		opts.Source = []string{file}
	}
	return opts
}

func resolutionEnv(vs *remote.Context, exp conf.Experiment, env map[string]string) {
	if vs.Err != nil {
		return
	}
	trc, err := exp.Int("TRC")
	if err != nil {
		vs.Err = err
		return
	}
	lv, err := exp.Int("LV")
	if err != nil {
		vs.Err = err
		return
	}
	env["TRUNC"] = fmt.Sprintf("%04d", trc)
	env["LEV"] = fmt.Sprintf("%03d", lv)
}

// submitModel runs the model submission script and records the
// job id it prints.
func submitModel(vs *remote.Context, exp conf.Experiment, opts *remote.RunOptions, format string, args ...interface{}) {
	if vs.Err != nil {
		return
	}
	out := vs.Run(opts, format, args...)
	if vs.Err != nil {
		return
	}
	id, err := scheduler.ParseModelJobID(remote.ClearOutput(out))
	if err != nil {
		vs.Err = err
		return
	}
	exp.Set(conf.JobIDModel, id)
	vs.LogInfo("model submitted as %s", id)
}

// submitPost submits script, depending on the model job when one
// was submitted, and returns its job id.
func submitPost(vs *remote.Context, sched scheduler.PBS, exp conf.Experiment, script vpath.VirtualPath) string {
	var deps []string
	if id := exp.Str(conf.JobIDModel); id != "" {
		deps = append(deps, id)
	}
	opts := &remote.RunOptions{Cwd: folders.Runscripts(exp).Path}
	return sched.Submit(vs, opts, script.Path, deps...)
}

// segmentArgs returns the arguments shared by the model run scripts.
func segmentArgs(exp conf.Experiment) []interface{} {
	return []interface{}{
		exp.Str("start"), exp.Str("restart"), exp.Str("finish"),
		exp.Str("npes"), exp.Str("name"),
	}
}

func prepareWorkdir(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("prepare workdir")()
	console.PrintAction("Preparing workdir")

	workdir := folders.Workdir(exp)
	vs.MkDir(workdir)
	vs.Rsync(folders.Path(exp, "workdir_template").Join("*"), workdir)
	vs.Touch(workdir.Join("time_stamp.restart"))
}

// archiveLogs compresses the files in workdir matching patterns,
// except those in plain, and moves them to the output directory
// of the archive.
func archiveLogs(vs *remote.Context, exp conf.Experiment, archive vpath.VirtualPath, patterns string, plain ...string) {
	if vs.Err != nil {
		return
	}
	output := archive.Join("output")
	vs.MkDir(output)

	workdir := folders.Workdir(exp)
	opts := &remote.RunOptions{Cwd: workdir.Path}
	res := vs.RunWarn(opts, "ls -1 %s 2> /dev/null", patterns)

	keep := map[string]bool{}
	for _, f := range plain {
		keep[f] = true
	}
	for _, f := range splitLines(remote.ClearOutput(res.Stdout)) {
		if !vs.Exists(workdir.Join(f)) {
			continue
		}
		if !keep[f] {
			vs.Run(opts, "gzip %s", remote.Quote(f))
			f += ".gz"
		}
		vs.Run(opts, "mv %s %s/", remote.Quote(f), remote.Quote(output.Path))
	}
}
