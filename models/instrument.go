package models

import (
	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/remote"
	"github.com/meteocima/virtual-server/vpath"
)

// Instrument rebuilds the model with the Cray performance tools and
// makes the experiment run the instrumented executable.
func Instrument(vs *remote.Context, exp conf.Experiment, m Model) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("instrument executable")()
	console.PrintAction("Rebuilding executable with instrumentation")

	defer vs.Prefix("module load perftools")()
	m.Compile(vs, exp)

	executable := exp.Str("executable")
	instrumented := executable + "+apa"
	if vs.Exists(vpath.New(folders.Host, instrumented)) {
		vs.Run(nil, "rm %s", remote.Quote(instrumented))
	}
	vs.Run(nil, "pat_build -O %s/instrument_coupler.apa -o %s %s",
		exp.Str("expdir"), remote.Quote(instrumented), remote.Quote(executable))
	if vs.Err == nil {
		exp.Set("executable", instrumented)
	}
}
