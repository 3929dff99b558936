package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/nml"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/scheduler"
)

// Ocean is the ocean model, forced by prescribed atmospheric fields.
type Ocean struct {
	Sched scheduler.PBS
}

// PreTools are the ocean pre-processing tools an experiment
// can enable with `<tool>_run_this_module`.
var PreTools = []string{"gengrid", "make_xgrids", "regrid_3d", "regrid_2d"}

var fmsDateRe = regexp.MustCompile(`(\d{4})/(\s*\d{1,2})/(\s*\d{1,2})\s(\s*\d{1,2}):(\s*\d{1,2}):(\s*\d{1,2})`)

// exit status of make_xgrids on success
const makeXgridsDone = 41

// Type ...
func (m *Ocean) Type() conf.ModelType {
	return conf.Ocean
}

// Prepare ...
func (m *Ocean) Prepare(vs *remote.Context, exp conf.Experiment) {
	m.PrepareExpdir(vs, exp)
	prepareWorkdir(vs, exp)
}

// PrepareExpdir creates the directories used by the
// post-processing and by the enabled pre-processing tools.
func (m *Ocean) PrepareExpdir(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("prepare ocean expdir")()

	vs.MkDir(folders.Path(exp, "comb_exe"))
	for _, tool := range PreTools {
		if !exp.Bool(tool + "_run_this_module") {
			continue
		}
		vs.MkDir(folders.Path(exp, "execdir").Join(tool))
		vs.MkDir(folders.Path(exp, tool+"_workdir"))
	}
	vs.MkDir(folders.Workdir(exp).Join("DRIFTERS"))
}

// Compile ...
func (m *Ocean) Compile(vs *remote.Context, exp conf.Experiment) {
	m.CompileModel(vs, exp)
	m.CompilePost(vs, exp)
}

// CompileModel ...
func (m *Ocean) CompileModel(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("compile ocean model")()
	opts := scriptOpts(exp, folders.Path(exp, "execdir"), "envconf",
		"comp", "code_dir", "root", "type", "mkmf_template", "executable")
	vs.Run(opts, "/usr/bin/tcsh %s", exp.Str("ocean_makeconf"))
}

// CompilePost builds the output combiner and copies the
// drifters combiner next to it.
func (m *Ocean) CompilePost(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("compile ocean post-processing")()
	combExe := folders.Path(exp, "comb_exe")
	opts := scriptOpts(exp, combExe, "envconf", "root", "platform")
	vs.Run(opts, "make -f %s/Make_combine", exp.Str("comb_src"))
	vs.Run(nil, "cp %s/MOM4p1/src/shared/drifters/drifters_combine %s/", exp.Str("root"), remote.Quote(combExe.Path))
}

// CompilePre builds the enabled pre-processing tools.
func (m *Ocean) CompilePre(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("compile ocean pre-processing")()

	execdir := folders.Path(exp, "execdir")
	tcshTools := map[string][]string{
		"gengrid":   {"root", "platform", "mkmf_template", "executable_gengrid"},
		"regrid_3d": {"root", "mkmf_template", "executable_regrid_3d"},
		"regrid_2d": {"root", "mkmf_template", "executable_regrid_2d"},
	}
	for _, tool := range []string{"gengrid", "regrid_3d", "regrid_2d"} {
		if !exp.Bool(tool + "_run_this_module") {
			continue
		}
		opts := scriptOpts(exp, execdir.Join(tool), "envconf", tcshTools[tool]...)
		vs.Run(opts, "/usr/bin/tcsh %s", exp.Str(tool+"_makeconf"))
	}

	if exp.Bool("make_xgrids_run_this_module") {
		src := exp.Str("make_xgrids_src")
		opts := &remote.RunOptions{Source: []string{exp.Str("make_xgrids_envconf")}}
		vs.Run(opts, "sed -i.bak -r -e 's/^#define MAXLOCAL.*$/#define MAXLOCAL 1e8/g' %s", src)
		vs.Run(opts, "cc -g -V -O -o %s %s -I $NETCDF_DIR/include -L $NETCDF_DIR/lib -lnetcdf -lm -Duse_LARGEFILE -Duse_netCDF -DLARGE_FILE",
			exp.Str("executable_make_xgrids"), src)
	}
}

// PrepareNamelist writes input.nml in the workdir.
func (m *Ocean) PrepareNamelist(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("prepare ocean namelist")()

	file := loadNamelist(vs, exp, "ocean_namelist")
	if vs.Err != nil {
		return
	}

	coupler := file.Ensure("coupler_nml")
	oceanModel := file.Ensure("ocean_model_nml")
	iceModel := file.Ensure("ice_model_nml")

	if coupler.Bool("concurrent") {
		oceanNpes, err := coupler.Int("ocean_npes")
		if err != nil {
			vs.Err = fmt.Errorf("coupler_nml: %w", err)
			return
		}
		oceanModel.Set("layout", layoutValue(oceanNpes))
		iceModel.Set("layout", nml.Raw("0,0"))
	} else {
		npes, err := exp.Int("npes")
		if err != nil {
			vs.Err = err
			return
		}
		oceanModel.Set("layout", layoutValue(npes))
		iceModel.Set("layout", layoutValue(npes))
	}

	oceanModel.Set("dt_ocean", nmlValue(exp, "dt_ocean"))
	coupler.Set("dt_atmos", nmlValue(exp, "dt_atmos"))
	coupler.Set("dt_cpld", nmlValue(exp, "dt_cpld"))

	coupler.Delete("days")
	coupler.Delete("months")
	switch {
	case exp.Has("days") && !exp.Has("months"):
		coupler.Set("days", nmlValue(exp, "days"))
	case exp.Has("months") && !exp.Has("days"):
		coupler.Set("months", nmlValue(exp, "months"))
	default:
		vs.Err = conf.NewConfigError("days, months", "exactly one of the keys must be set", nil)
		return
	}

	begin, err := exp.Begin()
	if err != nil {
		vs.Err = err
		return
	}
	coupler.Set("current_date", nml.Raw(begin.Format("2006, 01, 02, 15, 0, 0")))

	if drifters := file.Group("ocean_drifters_nml"); drifters != nil && drifters.Bool("use_this_module") {
		exp.Set("run_drifters_pos", true)
	}

	vs.WriteString(folders.Workdir(exp).Join("input.nml"), file.Encode())
}

func (m *Ocean) runOpts(exp conf.Experiment, keys ...string) *remote.RunOptions {
	return scriptOpts(exp, folders.Runscripts(exp), "envconf", keys...)
}

// RunModel ...
func (m *Ocean) RunModel(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("run ocean model")()
	console.PrintAction("Submitting ocean model")

	opts := m.runOpts(exp, "workdir", "platform", "walltime", "datatable", "diagtable",
		"fieldtable", "executable", "mppnccombine", "comb_exe", "account")
	if exp.Bool("run_drifters_pos") {
		vs.Run(opts, ". set_pos_drifters.cray")
	}
	args := append([]interface{}{string(exp.Mode())}, segmentArgs(exp)...)
	submitModel(vs, exp, opts, ". run_g4c_model.cray %s %s %s %s %s %s", args...)
}

// RunPost submits the output combiner, and the drifters
// post-processing when drifters are enabled.
func (m *Ocean) RunPost(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("run ocean post-processing")()
	console.PrintAction("Submitting ocean post-processing")

	workdir := folders.Workdir(exp)
	platform := exp.Str("platform")
	id := submitPost(vs, m.Sched, exp, workdir.Join("set_g4c_pos_m4g4.%s", platform))
	if exp.Bool("run_drifters_pos") {
		id = submitPost(vs, m.Sched, exp, workdir.Join("run_pos_drifters.%s", platform))
	}
	if vs.Err == nil {
		exp.Set(conf.JobIDPosOcean, id)
	}
}

// CouplerDate reads the model date stored in the last line of
// coupler.res, as YYYYMMDDHH.
func CouplerDate(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return "", fmt.Errorf("malformed coupler.res line `%s`", line)
	}
	parts := make([]int, 4)
	for i, f := range fields[:4] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return "", fmt.Errorf("malformed coupler.res line `%s`: %w", line, err)
		}
		parts[i] = n
	}
	return fmt.Sprintf("%04d%02d%02d%02d", parts[0], parts[1], parts[2], parts[3]), nil
}

// expectedRestart returns the date the model must start from:
// `start` for cold runs, `restart` for warm ones.
func expectedRestart(exp conf.Experiment) (string, error) {
	begin, err := exp.Begin()
	if err != nil {
		return "", err
	}
	return conf.FormatDate(begin), nil
}

// CheckRestart compares the date in INPUT/coupler.res with the date
// the segment starts from. When coupler.res is missing, the restart
// archived for that date is extracted first; a model with no restart
// at all starts from its initial conditions.
func (m *Ocean) CheckRestart(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("check ocean restart")()

	expected, err := expectedRestart(exp)
	if err != nil {
		vs.Err = err
		return
	}

	couplerRes := folders.CouplerRes(exp)
	if !vs.Exists(couplerRes) {
		m.stageRestart(vs, exp, expected)
	}
	if !vs.Exists(couplerRes) {
		vs.LogInfo("no coupler.res, starting from initial conditions")
		return
	}

	line := remote.LastLine(remote.ClearOutput(vs.Run(nil, "tail -1 %s", remote.Quote(couplerRes.Path))))
	if vs.Err != nil {
		return
	}
	found, err := CouplerDate(line)
	if err != nil {
		vs.Err = err
		return
	}
	if found != expected {
		vs.Err = &RestartMismatchError{File: couplerRes.String(), Expected: expected, Found: found}
	}
}

// stageRestart extracts the restart archived for date in INPUT.
// A missing archive is not an error.
func (m *Ocean) stageRestart(vs *remote.Context, exp conf.Experiment, date string) {
	full, _, err := folders.ArchivePath(exp)
	if err != nil {
		vs.Err = err
		return
	}
	input := folders.Workdir(exp).Join("INPUT")
	vs.RunWarn(&remote.RunOptions{Cwd: input.Path}, "tar xf %s/restart/%s.tar.gz", full.Path, date)
}

// PrepareRestart copies the restart files written by the model
// into its input directory.
func (m *Ocean) PrepareRestart(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("prepare ocean restart")()
	workdir := folders.Workdir(exp)
	vs.Rsync(workdir.Join("RESTART/*"), workdir.Join("INPUT"))
}

// Archive moves logs, restart files and inputs to the long term storage.
func (m *Ocean) Archive(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("archive ocean")()

	full, cname, err := folders.ArchivePath(exp)
	if err != nil {
		vs.Err = err
		return
	}
	vs.MkDir(full.Join("ocean/%s", cname))
	archiveLogs(vs, exp, full,
		"*fms.out *logfile.*.out input.nml set_g4c_model*out.txt *_table *diag_integral.out set_g4c_pos_m4g4*out.txt *time_stamp.out",
		"data_table", "diag_table", "field_table", "input.nml")

	restart := full.Join("restart")
	vs.MkDir(restart)
	workdir := folders.Workdir(exp)
	finish := exp.Str("finish")

	opts := &remote.RunOptions{Cwd: workdir.Join("RESTART").Path}
	vs.Run(opts, "tar czvf %s.tar.gz coupler* ice* land* ocean*", finish)
	vs.Run(opts, "mv %s.tar.gz %s/", finish, remote.Quote(restart.Path))

	opts = &remote.RunOptions{Cwd: workdir.Path}
	vs.Run(opts, `tar czvf INPUT.tar.gz INPUT/ --exclude="*.res*"`)
	vs.Run(opts, "mv INPUT.tar.gz %s/", remote.Quote(restart.Path))
}

// Clean ...
func (m *Ocean) Clean(vs *remote.Context, exp conf.Experiment) {
	vs.RmDir(folders.Path(exp, "comb_exe"))
}

// Progress returns the model date printed last in fms.out.
func (m *Ocean) Progress(vs *remote.Context, exp conf.Experiment) (time.Time, bool) {
	fmsOut := folders.FmsOut(exp)
	if !vs.Exists(fmsOut) {
		return time.Time{}, false
	}
	res := vs.RunWarn(nil, "tac %s | grep -m1 yyyy", remote.Quote(fmsOut.Path))
	if res.Failed() {
		return time.Time{}, false
	}
	match := fmsDateRe.FindStringSubmatch(remote.LastLine(remote.ClearOutput(res.Stdout)))
	if match == nil {
		return time.Time{}, false
	}
	var parts [6]int
	for i := range parts {
		parts[i], _ = strconv.Atoi(strings.TrimSpace(match[i+1]))
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC), true
}

func (m *Ocean) preOpts(exp conf.Experiment, keys ...string) *remote.RunOptions {
	return scriptOpts(exp, folders.Path(exp, "expdir").Join("runscripts/mom4_pre"), "envconf", keys...)
}

// GenerateGrid runs the grid generator on the configured topography.
func (m *Ocean) GenerateGrid(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("generate ocean grid")()
	console.PrintAction("Generating ocean grid")

	vs.Run(nil, "cp %s %s/topog_file.nc", exp.Str("topog_file"), remote.Quote(exp.Str("gengrid_workdir")))
	opts := m.preOpts(exp, "mom4_pre_npes", "mom4_pre_walltime", "RUNTM", "executable_gengrid",
		"gengrid_workdir", "account", "topog_file", "platform")
	vs.Run(opts, "/usr/bin/tcsh ocean_grid_run.csh")
}

// Regrid3D interpolates a 3D field onto the model grid.
func (m *Ocean) Regrid3D(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("regrid 3d")()
	console.PrintAction("Regridding 3d fields")

	vs.Run(nil, "cp %s %s/src_file.nc", exp.Str("regrid_3d_src_file"), remote.Quote(exp.Str("regrid_3d_workdir")))
	opts := m.preOpts(exp, "mom4_pre_npes", "mom4_pre_walltime", "executable_regrid_3d", "regrid_3d_workdir",
		"regrid_3d_dest_grid", "regrid_3d_output_filename", "account", "platform")
	vs.Run(opts, "/usr/bin/tcsh regrid_3d_run.csh")
}

// Regrid2D interpolates a 2D field onto the model grid.
func (m *Ocean) Regrid2D(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("regrid 2d")()
	console.PrintAction("Regridding 2d fields")

	m.prepareRegrid2D(vs, exp)
	opts := m.preOpts(exp, "mom4_pre_npes", "mom4_pre_walltime", "executable_regrid_2d", "regrid_2d_workdir",
		"regrid_2d_src_file", "account", "platform")
	vs.Run(opts, "/usr/bin/tcsh regrid_2d_run.csh")
}

// prepareRegrid2D writes the namelist of regrid_2d in its workdir,
// with the source file copied next to it.
func (m *Ocean) prepareRegrid2D(vs *remote.Context, exp conf.Experiment) {
	file := loadNamelist(vs, exp, "regrid_2d_namelist")
	if vs.Err != nil {
		return
	}
	workdir := folders.Path(exp, "regrid_2d_workdir")
	group := file.Ensure("regrid_2d_nml")
	src, _ := group.Get("src_file")
	srcFile, isStr := src.(string)
	if !isStr || srcFile == "" {
		vs.Err = fmt.Errorf("regrid_2d_nml: missing src_file")
		return
	}
	vs.Run(nil, "cp %s %s/src_file.nc", srcFile, remote.Quote(workdir.Path))
	group.Set("src_file", "src_file.nc")
	vs.WriteString(workdir.Join("input.nml"), file.Encode())
}

// MakeXgrids builds the exchange grids between the ocean and the
// atmosphere grids, and merges them in grid_spec_UNION.nc.
func (m *Ocean) MakeXgrids(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("make exchange grids")()
	console.PrintAction("Making exchange grids")

	gengrid := folders.Workdir(exp).Join("gengrid")
	opts := &remote.RunOptions{Cwd: gengrid.Path, Source: []string{exp.Str("envconf")}}
	res := vs.RunWarn(opts, "%s -o ocean_grid.nc -a %s,%s",
		exp.Str("executable_make_xgrids"), exp.Str("atmos_gridx"), exp.Str("atmos_gridy"))
	if res.ExitCode != makeXgridsDone {
		vs.Err = &remote.CommandError{Cmd: "make_xgrids", ExitCode: res.ExitCode, Output: res.Stdout + res.Stderr}
		return
	}

	vs.Run(opts, "cp ocean_grid.nc grid_spec_UNION.nc")
	if !vs.RunWarn(opts, "ls ocean_grid?.nc").Failed() {
		vs.Run(opts, "for file in ocean_grid?.nc; do ncks -A $file grid_spec_UNION.nc; done")
	}
	vs.Run(opts, "ncks -A grid_spec.nc grid_spec_UNION.nc")
	if !vs.RunWarn(opts, "ls grid_spec?.nc").Failed() {
		vs.Run(opts, "for file in grid_spec?.nc; do ncks -A $file grid_spec_UNION.nc; done")
	}
}
