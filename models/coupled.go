package models

import (
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/scheduler"
)

// Coupled runs the ocean and the atmosphere models together. Most
// steps are those of its two components.
type Coupled struct {
	Atmos *Atmos
	Ocean *Ocean
	Sched scheduler.PBS
}

// NewCoupled ...
func NewCoupled(sched scheduler.PBS) *Coupled {
	return &Coupled{
		Atmos: &Atmos{Sched: sched},
		Ocean: &Ocean{Sched: sched},
		Sched: sched,
	}
}

// Type ...
func (m *Coupled) Type() conf.ModelType {
	return conf.Coupled
}

// Prepare ...
func (m *Coupled) Prepare(vs *remote.Context, exp conf.Experiment) {
	m.Ocean.PrepareExpdir(vs, exp)
	prepareWorkdir(vs, exp)
	m.Atmos.LinkInputs(vs, exp)
}

// Compile ...
func (m *Coupled) Compile(vs *remote.Context, exp conf.Experiment) {
	m.CompileModel(vs, exp)
	m.Ocean.CompilePost(vs, exp)
	m.Atmos.CompilePre(vs, exp)
	m.Atmos.CompilePost(vs, exp)
}

// CompileModel ...
func (m *Coupled) CompileModel(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("compile coupled model")()
	opts := scriptOpts(exp, folders.Path(exp, "execdir"), "envconf",
		"comp", "code_dir", "root", "type", "mkmf_template", "executable")
	vs.Run(opts, "/usr/bin/tcsh -e %s", exp.Str("cpld_makeconf"))
}

// PrepareNamelist ...
func (m *Coupled) PrepareNamelist(vs *remote.Context, exp conf.Experiment) {
	m.Atmos.PrepareNamelist(vs, exp)
	m.Ocean.PrepareNamelist(vs, exp)
}

// RunModel ...
func (m *Coupled) RunModel(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("run coupled model")()
	console.PrintAction("Submitting coupled model")

	opts := scriptOpts(exp, folders.Runscripts(exp), "envconf",
		"workdir", "platform", "walltime", "datatable", "diagtable", "fieldtable", "executable",
		"execdir", "LV", "rootexp", "mppnccombine", "comb_exe", "account", "DHEXT")
	resolutionEnv(vs, exp, opts.Env)
	args := append([]interface{}{string(exp.Mode())}, segmentArgs(exp)...)
	submitModel(vs, exp, opts, ". run_g4c_model.cray %s %s %s %s %s %s", args...)
}

// RunPost ...
func (m *Coupled) RunPost(vs *remote.Context, exp conf.Experiment) {
	m.Ocean.RunPost(vs, exp)
	m.Atmos.RunPost(vs, exp)
}

// CheckRestart ...
func (m *Coupled) CheckRestart(vs *remote.Context, exp conf.Experiment) {
	m.Ocean.CheckRestart(vs, exp)
	m.Atmos.CheckRestart(vs, exp)
}

// PrepareRestart ...
func (m *Coupled) PrepareRestart(vs *remote.Context, exp conf.Experiment) {
	m.Ocean.PrepareRestart(vs, exp)
	m.Atmos.PrepareRestart(vs, exp)
}

// Archive ...
func (m *Coupled) Archive(vs *remote.Context, exp conf.Experiment) {
	m.Ocean.Archive(vs, exp)
	m.Atmos.Archive(vs, exp)
}

// Clean ...
func (m *Coupled) Clean(vs *remote.Context, exp conf.Experiment) {
	m.Ocean.Clean(vs, exp)
}

// Progress follows the ocean component, which logs the model date.
func (m *Coupled) Progress(vs *remote.Context, exp conf.Experiment) (time.Time, bool) {
	return m.Ocean.Progress(vs, exp)
}
