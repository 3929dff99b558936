package runner

import (
	"strings"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/models"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/vcs"
)

// jobPrefixes are prepended to the experiment name to build the
// names of its model, coupled model and post-processing jobs.
var jobPrefixes = []string{"M_", "C_", "P_"}

// Deploy prepares the experiment and compiles it when needed.
func (r *Runner) Deploy(vs *remote.Context, exp conf.Experiment) {
	r.Prepare(vs, exp)
	r.Compilation(vs, exp)
}

// DeployAndRun ...
func (r *Runner) DeployAndRun(vs *remote.Context, exp conf.Experiment) {
	r.Deploy(vs, exp)
	r.Run(vs, exp)
}

// Restart runs the experiment as a warm restart.
func (r *Runner) Restart(vs *remote.Context, exp conf.Experiment) {
	exp.SetMode(conf.Warm)
	r.Run(vs, exp)
}

// Prepare creates the experiment directories and copies the
// experiment files in `expdir`.
func (r *Runner) Prepare(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("prepare %s", exp.Str("name"))()
	console.PrintAction("Preparing expdir")

	if err := exp.Require("expdir", "execdir", "expfiles", "name"); err != nil {
		vs.Err = err
		return
	}
	expdir := folders.Path(exp, "expdir")
	vs.MkDir(expdir)
	vs.MkDir(folders.Path(exp, "execdir"))
	r.Model.Prepare(vs, exp)
	vs.Rsync(folders.ExpFiles(exp).Join("*"), expdir)
}

// Compilation brings the sources up to date and rebuilds the model
// when they changed. With `instrument` set, the model is always
// rebuilt, for profiling.
func (r *Runner) Compilation(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	if exp.Bool("instrument") {
		vcs.Sync(vs, exp)
		models.Instrument(vs, exp, r.Model)
		return
	}
	if vcs.Sync(vs, exp) {
		r.Model.Compile(vs, exp)
		return
	}
	console.PrintMessage("Sources unchanged, skipping compilation")
}

// Compile rebuilds the model, whether its sources changed or not.
func (r *Runner) Compile(vs *remote.Context, exp conf.Experiment) {
	r.Model.Compile(vs, exp)
}

// Instrument syncs the sources and builds the model for profiling.
func (r *Runner) Instrument(vs *remote.Context, exp conf.Experiment) {
	vcs.Sync(vs, exp)
	models.Instrument(vs, exp, r.Model)
}

// Archive moves the outputs of the experiment to long term storage.
func (r *Runner) Archive(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("archive %s", exp.Str("name"))()
	console.PrintAction("Archiving experiment")
	r.Model.Archive(vs, exp)
}

// CheckStatus prints the state of the tracked jobs, until they leave
// the queue unless oneshot is set. It reports whether any was queued.
func (r *Runner) CheckStatus(vs *remote.Context, exp conf.Experiment, oneshot bool) bool {
	return r.Poller.Check(vs, exp, oneshot)
}

// Kill deletes every queued job belonging to the experiment.
// qstat truncates job names, so a job matches when its name is
// the beginning of one of the experiment job names.
func (r *Runner) Kill(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("kill %s", exp.Str("name"))()
	console.PrintAction("Killing experiment")

	name := exp.Str("name")
	for _, job := range r.Sched.QueryAll(vs) {
		if job.Name == "" || !ownsJob(name, job.Name) {
			continue
		}
		vs.LogInfo("deleting job %s (%s)", job.ID, job.Name)
		if !r.Sched.Delete(vs, job.ID) {
			vs.LogInfo("job %s already left the queue", job.ID)
		}
	}
}

func ownsJob(expName, jobName string) bool {
	for _, prefix := range jobPrefixes {
		if strings.HasPrefix(prefix+expName, jobName) {
			return true
		}
	}
	return false
}

// Clean removes every directory of the experiment.
func (r *Runner) Clean(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("clean %s", exp.Str("name"))()
	console.PrintAction("Cleaning experiment")

	for _, key := range []string{"expdir", "rootexp", "execdir"} {
		if exp.Has(key) {
			vs.RmDir(folders.Path(exp, key))
		}
	}
	r.Model.Clean(vs, exp)
	if exp.Has("workdir") {
		vs.RmDir(folders.Workdir(exp))
	}
}

// PreTool is an ocean pre-processing tool.
type PreTool func(m *models.Ocean, vs *remote.Context, exp conf.Experiment)

// Ocean pre-processing tools.
var (
	GenerateGrid PreTool = (*models.Ocean).GenerateGrid
	MakeXgrids   PreTool = (*models.Ocean).MakeXgrids
	Regrid3D     PreTool = (*models.Ocean).Regrid3D
	Regrid2D     PreTool = (*models.Ocean).Regrid2D
)

// PreProcess prepares the experiment directories, builds the ocean
// pre-processing tools and runs tool.
func (r *Runner) PreProcess(vs *remote.Context, exp conf.Experiment, tool PreTool) {
	if vs.Err != nil {
		return
	}
	ocean := &models.Ocean{Sched: r.Sched}

	r.prepareExpdir(vs, exp)
	vcs.Sync(vs, exp)
	ocean.CompilePre(vs, exp)
	tool(ocean, vs, exp)
}

// prepareExpdir creates the directories of the experiment, without
// its workdir, and copies the experiment files in `expdir`.
func (r *Runner) prepareExpdir(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("prepare expdir")()
	console.PrintAction("Preparing expdir")

	expdir := folders.Path(exp, "expdir")
	vs.MkDir(expdir)
	vs.MkDir(folders.Path(exp, "execdir"))
	typ, _ := exp.Type()
	if typ.HasOcean() {
		(&models.Ocean{Sched: r.Sched}).PrepareExpdir(vs, exp)
	}
	if typ == conf.Atmos {
		vs.MkDir(folders.Path(exp, "PATH2"))
	}
	vs.Rsync(folders.ExpFiles(exp).Join("*"), expdir)
}
