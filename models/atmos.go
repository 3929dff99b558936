package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/nml"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/scheduler"
)

// Atmos is the atmospheric global circulation model.
type Atmos struct {
	Sched scheduler.PBS
}

// forecast hours read by the atmosphere post-processing from
// the end of MODELIN.
const postForecastHours = `
 17
   6.0 12.0  18.0  24.0
  30.0 36.0  42.0  48.0
  54.0 60.0  66.0  72.0
  84.0 96.0 120.0 144.0
 168.0
`

var atmosGroupOrder = []string{"MODEL_RES", "MODEL_IN", "PHYSPROC", "PHYSCS", "COMCON"}

var forecastFileRe = regexp.MustCompile(`.*(\d{10})F.*`)

// Type ...
func (m *Atmos) Type() conf.ModelType {
	return conf.Atmos
}

// Prepare ...
func (m *Atmos) Prepare(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	vs.MkDir(folders.Path(exp, "PATH2"))
	m.LinkInputs(vs, exp)
	prepareWorkdir(vs, exp)
}

// LinkInputs copies the input data of the model and of its
// post-processing into the experiment root.
func (m *Atmos) LinkInputs(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("link atmos inputs")()

	for _, comp := range []string{"model", "pos"} {
		console.PrintAction("Linking AGCM %s input data", comp)
		datain := folders.Path(exp, "rootexp").Join("AGCM-1.0/%s/datain", comp)
		if !vs.Exists(datain) {
			vs.MkDir(datain)
		}
		vs.Run(nil, "cp -R %s/* %s", exp.Str(fmt.Sprintf("agcm_%s_inputs", comp)), remote.Quote(datain.Path))
	}
}

// Compile ...
func (m *Atmos) Compile(vs *remote.Context, exp conf.Experiment) {
	m.CompileModel(vs, exp)
	m.CompilePre(vs, exp)
	m.CompilePost(vs, exp)
}

// CompileModel ...
func (m *Atmos) CompileModel(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("compile atmos model")()
	opts := scriptOpts(exp, folders.Path(exp, "execdir"), "envconf", "root", "executable")
	vs.Run(opts, "make -f %s", exp.Str("atmos_makeconf"))
}

// CompilePre builds the atmosphere pre-processing.
func (m *Atmos) CompilePre(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("compile atmos pre-processing")()
	m.makeCray(vs, exp, folders.Path(exp, "pre_atmos").Join("sources").Path)
}

// CompilePost builds the atmosphere post-processing.
func (m *Atmos) CompilePost(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("compile atmos post-processing")()
	m.makeCray(vs, exp, exp.Str("posgrib_src"))
}

// makeCray builds the Makefile in dir, after commenting out its
// own PATH2 so the exported one is used.
func (m *Atmos) makeCray(vs *remote.Context, exp conf.Experiment, dir string) {
	opts := &remote.RunOptions{Cwd: dir, Env: envOf(exp, "PATH2")}
	if envconf := exp.Str("envconf_pos"); envconf != "" {
		opts.Source = []string{envconf}
	}
	vs.Run(opts, "sed -i.bak -r -e 's/^PATH2/#PATH2/g' Makefile")
	vs.Run(opts, "make cray")
}

// FormatDate formats a YYYYMMDDHH date as HH,DD,MM,YYYY.
func FormatDate(date string) string {
	if len(date) != 10 {
		return date
	}
	return fmt.Sprintf("%s,%s,%s,%s", date[8:], date[6:8], date[4:6], date[0:4])
}

// PrepareNamelist writes MODELIN in the workdir.
func (m *Atmos) PrepareNamelist(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("prepare atmos namelist")()

	if err := exp.Require("start", "restart", "finish"); err != nil {
		vs.Err = err
		return
	}
	file := loadNamelist(vs, exp, "agcm_namelist")
	if vs.Err != nil {
		return
	}
	tag, err := folders.ResolutionTag(exp)
	if err != nil {
		vs.Err = err
		return
	}
	trc, _ := exp.Int("TRC")
	lv, _ := exp.Int("LV")

	nhext := 0
	dhext, _ := exp.Int("DHEXT")
	if dhext != 0 {
		restart, err := exp.Date("restart")
		if err != nil {
			vs.Err = err
			return
		}
		finish, err := exp.Date("finish")
		if err != nil {
			vs.Err = err
			return
		}
		nhext = int(finish.Sub(restart) / time.Hour)
	}

	res := file.Ensure("MODEL_RES")
	res.Set("trunc", fmt.Sprintf("%04d", trc))
	res.Set("vert", lv)
	res.Set("dt", nmlValue(exp, "dt_atmos"))
	res.Set("IDATEI", rawDate(exp, "start"))
	res.Set("IDATEW", rawDate(exp, "restart"))
	res.Set("IDATEF", rawDate(exp, "finish"))
	res.Set("DHEXT", dhext)
	res.Set("NHEXT", nhext)
	res.Set("path_in", folders.Path(exp, "rootexp").Join("AGCM-1.0/model/datain").Path)
	res.Set("dirfNameOutput", folders.Workdir(exp).Join("model/dataout/%s", tag).Path)

	vs.WriteString(folders.Workdir(exp).Join("MODELIN"), file.Encode(atmosGroupOrder...)+postForecastHours)
}

// RunModel ...
func (m *Atmos) RunModel(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("run atmos model")()
	console.PrintAction("Submitting atmos model")

	opts := scriptOpts(exp, folders.Runscripts(exp), "envconf",
		"rootexp", "workdir", "executable", "walltime", "execdir", "platform", "LV")
	resolutionEnv(vs, exp, opts.Env)
	submitModel(vs, exp, opts, ". run_atmos_model.cray run %s %s %s %s %s", segmentArgs(exp)...)
}

// RunPost ...
func (m *Atmos) RunPost(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("run atmos post-processing")()
	console.PrintAction("Submitting atmos post-processing")

	id := submitPost(vs, m.Sched, exp, folders.Workdir(exp).Join("set_g4c_posgrib.cray"))
	if vs.Err == nil {
		exp.Set(conf.JobIDPosAtmos, id)
	}
}

// restartFiles returns the pattern matching the restart files the
// model needs to start from `restart`.
func (m *Atmos) restartFiles(vs *remote.Context, exp conf.Experiment) string {
	dataout, err := folders.AtmosDataout(exp)
	if err != nil {
		vs.Err = err
		return ""
	}
	return fmt.Sprintf("%s/*%s%sF.unf*outatt*", dataout.Path, exp.Str("start"), exp.Str("restart"))
}

// CheckRestart verifies, for warm runs, that the restart files
// for `restart` are in the output directory, extracting them from
// the archive when missing.
func (m *Atmos) CheckRestart(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil || exp.Mode() != conf.Warm {
		return
	}
	defer vs.SetTask("check atmos restart")()

	m.stageRestart(vs, exp)
	pattern := m.restartFiles(vs, exp)
	vs.Run(nil, "ls %s", pattern)
}

func (m *Atmos) stageRestart(vs *remote.Context, exp conf.Experiment) {
	pattern := m.restartFiles(vs, exp)
	if vs.Err != nil {
		return
	}
	if !vs.RunWarn(nil, "ls %s", pattern).Failed() {
		return
	}

	full, _, err := folders.ArchivePath(exp)
	if err != nil {
		vs.Err = err
		return
	}
	dataout, _ := folders.AtmosDataout(exp)
	name, _ := folders.AtmosRestartName(exp, exp.Str("start"), exp.Str("restart"))
	vs.LogInfo("extracting %s from the archive", name)
	vs.MkDir(dataout)
	vs.Run(&remote.RunOptions{Cwd: dataout.Path}, "tar xf %s/restart/%s.tar.gz", full.Path, name)
}

// PrepareRestart does nothing: the model restarts from its own
// output directory.
func (m *Atmos) PrepareRestart(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	vs.Log().Debug("atmos restart files stay in the output directory")
}

// Archive moves logs and restart files to the long term storage.
func (m *Atmos) Archive(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("archive atmos")()

	full, cname, err := folders.ArchivePath(exp)
	if err != nil {
		vs.Err = err
		return
	}
	vs.MkDir(full.Join("atmos/%s", cname))
	archiveLogs(vs, exp, full,
		"MODELIN Out.MPI.* set_post*out.txt set_g4c_posgrib*out.txt POSTIN-GRIB set_g4c_poseta*out.txt",
		"MODELIN", "POSTIN-GRIB")

	restart := full.Join("restart")
	vs.MkDir(restart)
	dataout, err := folders.AtmosDataout(exp)
	if err != nil {
		vs.Err = err
		return
	}
	name, _ := folders.AtmosRestartName(exp, exp.Str("start"), exp.Str("finish"))
	opts := &remote.RunOptions{Cwd: dataout.Path}
	vs.Run(opts, "tar czvf %[1]s.tar.gz %[1]s.*P???", name)
	vs.Run(opts, "mv %s.tar.gz %s/", name, remote.Quote(restart.Path))
	vs.Run(opts, "rm %s.*P???", name)
}

// Clean ...
func (m *Atmos) Clean(vs *remote.Context, exp conf.Experiment) {
	vs.RmDir(folders.Path(exp, "PATH2"))
}

// Progress returns the date of the newest forecast file written
// by the model.
func (m *Atmos) Progress(vs *remote.Context, exp conf.Experiment) (time.Time, bool) {
	if vs.Err != nil {
		return time.Time{}, false
	}
	res := vs.RunWarn(nil, `find %s/model/dataout/ -iname "*.fct.*" | sort`, folders.Workdir(exp).Path)
	if res.Failed() {
		return time.Time{}, false
	}
	match := forecastFileRe.FindStringSubmatch(remote.LastLine(remote.ClearOutput(res.Stdout)))
	if match == nil {
		return time.Time{}, false
	}
	current, err := conf.ParseDate(match[1])
	if err != nil {
		return time.Time{}, false
	}
	return current, true
}

func rawDate(exp conf.Experiment, key string) nml.Raw {
	return nml.Raw(FormatDate(exp.Str(key)))
}
