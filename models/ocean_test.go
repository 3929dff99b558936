package models

import (
	"errors"
	"testing"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/nml"
	"github.com/luizirber/bosun/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oceanTemplate = ` &coupler_nml
    months = 0,
    days = 1,
    concurrent = .false.,
    dt_atmos = 1800,
    calendar = 'julian',
 /

 &ocean_model_nml
    layout = 1,1,
    dt_ocean = 1800,
 /

 &ice_model_nml
    layout = 1,1,
 /

 &ocean_drifters_nml
    use_this_module = .true.,
 /
`

const couplerRes = `     2        (Calendar: no_calendar=0, thirty_day_months=1, julian=2, gregorian=3, noleap=4)
  2008     1     1     0     0     0        Model start time:   year, month, day, hour, minute, second
  2008     1    11     0     0     0        Current model time: year, month, day, hour, minute, second
`

func oceanExp() conf.Experiment {
	exp := testExp(conf.Ocean)
	exp["dt_ocean"] = 3600
	exp["dt_atmos"] = 3600
	exp["dt_cpld"] = 7200
	exp["days"] = 10
	exp["ocean_namelist"] = conf.Tree{
		"file": "/home/u/exp01/input.nml",
		"vars": conf.Tree{
			"coupler_nml": conf.Tree{"calendar": "noleap"},
			"diag_nml":    conf.Tree{"verbose": true},
		},
	}
	return exp
}

func TestOceanPrepareNamelist(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/home/u/exp01/input.nml"] = oceanTemplate
	exp := oceanExp()

	m := &Ocean{}
	m.PrepareNamelist(vs, exp)
	require.NoError(t, vs.Err)

	written, ok := conn.Files["/scratch/exp01/input.nml"]
	require.True(t, ok)
	f, err := nml.Decode(written)
	require.NoError(t, err)

	coupler := f.Group("coupler_nml")
	require.NotNil(t, coupler)
	assert.False(t, coupler.Has("months"))
	v, _ := coupler.Get("days")
	assert.Equal(t, 10, v)
	v, _ = coupler.Get("dt_cpld")
	assert.Equal(t, 7200, v)
	v, _ = coupler.Get("calendar")
	assert.Equal(t, "noleap", v)
	v, _ = coupler.Get("current_date")
	assert.Equal(t, nml.Raw("2008, 01, 01, 00, 0, 0"), v)

	v, _ = f.Group("ocean_model_nml").Get("layout")
	assert.Equal(t, nml.Raw("4,4"), v)
	v, _ = f.Group("ocean_model_nml").Get("dt_ocean")
	assert.Equal(t, 3600, v)
	v, _ = f.Group("ice_model_nml").Get("layout")
	assert.Equal(t, nml.Raw("4,4"), v)

	assert.True(t, f.Group("diag_nml").Bool("verbose"))
	assert.True(t, exp.Bool("run_drifters_pos"))
}

func TestOceanPrepareNamelistWarm(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/home/u/exp01/input.nml"] = oceanTemplate
	exp := oceanExp()
	exp["mode"] = "warm"
	exp["restart"] = "2008011100"
	exp["finish"] = "2008021100"
	delete(exp, "days")
	exp["months"] = 1

	m := &Ocean{}
	m.PrepareNamelist(vs, exp)
	require.NoError(t, vs.Err)

	f, err := nml.Decode(conn.Files["/scratch/exp01/input.nml"])
	require.NoError(t, err)
	coupler := f.Group("coupler_nml")
	assert.False(t, coupler.Has("days"))
	v, _ := coupler.Get("months")
	assert.Equal(t, 1, v)
	v, _ = coupler.Get("current_date")
	assert.Equal(t, nml.Raw("2008, 01, 11, 00, 0, 0"), v)
}

func TestOceanPrepareNamelistConcurrent(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/home/u/exp01/input.nml"] = oceanTemplate
	exp := oceanExp()
	exp["ocean_namelist"].(conf.Tree)["vars"] = conf.Tree{
		"coupler_nml": conf.Tree{"concurrent": true, "ocean_npes": 12},
	}

	m := &Ocean{}
	m.PrepareNamelist(vs, exp)
	require.NoError(t, vs.Err)

	f, err := nml.Decode(conn.Files["/scratch/exp01/input.nml"])
	require.NoError(t, err)
	v, _ := f.Group("ocean_model_nml").Get("layout")
	assert.Equal(t, nml.Raw("4,3"), v)
	v, _ = f.Group("ice_model_nml").Get("layout")
	assert.Equal(t, nml.Raw("0,0"), v)
}

func TestOceanPrepareNamelistDaysAndMonths(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/home/u/exp01/input.nml"] = oceanTemplate
	exp := oceanExp()
	exp["months"] = 1

	m := &Ocean{}
	m.PrepareNamelist(vs, exp)
	assert.True(t, conf.IsConfigError(vs.Err))
	assert.NotContains(t, conn.Files, "/scratch/exp01/input.nml")
}

func TestOceanRunModel(t *testing.T) {
	conn, vs := newContext()
	conn.On("run_g4c_model.cray", "HOME=/home/u\nqsub: submitted\nJobIDmodel: 1234.sdb\n")
	exp := oceanExp()
	exp["run_drifters_pos"] = true

	m := &Ocean{Sched: scheduler.New(conf.SchedulerConf{})}
	m.RunModel(vs, exp)
	require.NoError(t, vs.Err)

	assert.Equal(t, "1234.sdb", exp.Str(conf.JobIDModel))
	require.Len(t, conn.Commands, 2)
	assert.Contains(t, conn.Commands[0], ". set_pos_drifters.cray")
	cmd := conn.Commands[1]
	assert.Contains(t, cmd, "cd /home/u/exp01/runscripts && ")
	assert.Contains(t, cmd, "export workdir=/scratch/exp01")
	assert.Contains(t, cmd, "export comb_exe=/home/u/exp01/comb")
	assert.Contains(t, cmd, "source /home/u/exp01/env.conf")
	assert.Contains(t, cmd, ". run_g4c_model.cray cold 2008010100 2008010100 2008011100 16 exp01")
}

func TestOceanRunPost(t *testing.T) {
	conn, vs := newContext()
	conn.On("set_g4c_pos_m4g4", "5678.sdb\n").On("run_pos_drifters", "5679.sdb\n")
	exp := oceanExp()
	exp.Set(conf.JobIDModel, "1234.sdb")

	m := &Ocean{Sched: scheduler.New(conf.SchedulerConf{})}
	m.RunPost(vs, exp)
	require.NoError(t, vs.Err)
	assert.Equal(t, "5678.sdb", exp.Str(conf.JobIDPosOcean))
	assert.True(t, conn.Ran("cd /home/u/exp01/runscripts && qsub -W depend=afterok:1234.sdb /scratch/exp01/set_g4c_pos_m4g4.cray"))
	assert.False(t, conn.Ran("run_pos_drifters"))

	exp["run_drifters_pos"] = true
	m.RunPost(vs, exp)
	require.NoError(t, vs.Err)
	assert.Equal(t, "5679.sdb", exp.Str(conf.JobIDPosOcean))
}

func TestCouplerDate(t *testing.T) {
	date, err := CouplerDate("  2008     1    11     0     0     0        Current model time: year, month, day")
	require.NoError(t, err)
	assert.Equal(t, "2008011100", date)

	_, err = CouplerDate("Current model time")
	assert.Error(t, err)
}

func TestOceanCheckRestart(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/scratch/exp01/INPUT/coupler.res"] = couplerRes
	conn.On("tail -1", "  2008     1    11     0     0     0        Current model time: year, month, day, hour, minute, second\n")

	exp := oceanExp()
	exp["mode"] = "warm"
	exp["restart"] = "2008011100"
	m := &Ocean{}
	m.CheckRestart(vs, exp)
	require.NoError(t, vs.Err)
	assert.False(t, conn.Ran("tar xf"))

	exp["restart"] = "2008012100"
	m.CheckRestart(vs, exp)
	var mismatch *RestartMismatchError
	require.True(t, errors.As(vs.Err, &mismatch))
	assert.Equal(t, "2008012100", mismatch.Expected)
	assert.Equal(t, "2008011100", mismatch.Found)
}

func TestOceanCheckRestartColdUsesStart(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/scratch/exp01/INPUT/coupler.res"] = couplerRes
	conn.On("tail -1", "  2008     1     1     0     0     0        Current model time\n")

	m := &Ocean{}
	m.CheckRestart(vs, oceanExp())
	assert.NoError(t, vs.Err)
}

func TestOceanCheckRestartFromArchive(t *testing.T) {
	conn, vs := newContext()
	conn.OnExit("tar xf", 2, "")

	m := &Ocean{}
	m.CheckRestart(vs, oceanExp())
	require.NoError(t, vs.Err)
	assert.True(t, conn.Ran("cd /scratch/exp01/INPUT && tar xf /archive/exp01/dataout/ic01/ic2008/01/restart/2008010100.tar.gz"))
	assert.False(t, conn.Ran("tail -1"))
}

func TestOceanPrepareRestart(t *testing.T) {
	conn, vs := newContext()
	m := &Ocean{}
	m.PrepareRestart(vs, oceanExp())
	require.NoError(t, vs.Err)
	assert.Equal(t, []string{"rsync -rtL --progress /scratch/exp01/RESTART/* /scratch/exp01/INPUT"}, conn.Commands)
}

func TestOceanProgress(t *testing.T) {
	conn, vs := newContext()
	m := &Ocean{}

	_, found := m.Progress(vs, oceanExp())
	assert.False(t, found)
	assert.False(t, conn.Ran("tac"))

	conn.Files["/scratch/exp01/fms.out"] = "..."
	conn.On("tac", "  2008/ 1/ 6  6: 0: 0 yyyy/mm/dd hh:mm:ss\n")
	current, found := m.Progress(vs, oceanExp())
	require.True(t, found)
	assert.Equal(t, time.Date(2008, 1, 6, 6, 0, 0, 0, time.UTC), current)
	require.NoError(t, vs.Err)
}

func TestOceanProgressNoMarker(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/scratch/exp01/fms.out"] = "..."
	conn.OnExit("tac", 1, "")

	m := &Ocean{}
	_, found := m.Progress(vs, oceanExp())
	assert.False(t, found)
	assert.NoError(t, vs.Err)
}

func TestOceanPrepare(t *testing.T) {
	conn, vs := newContext()
	exp := oceanExp()
	exp["gengrid_run_this_module"] = true
	exp["gengrid_workdir"] = "/scratch/exp01/gengrid"

	m := &Ocean{}
	m.Prepare(vs, exp)
	require.NoError(t, vs.Err)
	assert.Equal(t, []string{
		"mkdir -p /home/u/exp01/comb",
		"mkdir -p /home/u/exp01/exec/gengrid",
		"mkdir -p /scratch/exp01/gengrid",
		"mkdir -p /scratch/exp01/DRIFTERS",
		"mkdir -p /scratch/exp01",
		"rsync -rtL --progress /home/u/templates/exp01/* /scratch/exp01",
		"touch /scratch/exp01/time_stamp.restart",
	}, conn.Commands)
}

func TestOceanCompile(t *testing.T) {
	conn, vs := newContext()
	exp := oceanExp()
	exp["ocean_makeconf"] = "/home/u/exp01/compile.csh"
	exp["comb_src"] = "/src/postprocessing"
	exp["root"] = "/src"

	m := &Ocean{}
	m.Compile(vs, exp)
	require.NoError(t, vs.Err)
	require.Len(t, conn.Commands, 3)
	assert.Contains(t, conn.Commands[0], "cd /home/u/exp01/exec && ")
	assert.Contains(t, conn.Commands[0], "export type=mom4p1_falsecoupled")
	assert.Contains(t, conn.Commands[0], "/usr/bin/tcsh /home/u/exp01/compile.csh")
	assert.Contains(t, conn.Commands[1], "cd /home/u/exp01/comb && ")
	assert.Contains(t, conn.Commands[1], "make -f /src/postprocessing/Make_combine")
	assert.Equal(t, "cp /src/MOM4p1/src/shared/drifters/drifters_combine /home/u/exp01/comb/", conn.Commands[2])
}

func TestOceanArchive(t *testing.T) {
	conn, vs := newContext()
	conn.On("ls -1", "HOME=/home/u\nfms.out\ninput.nml\ngone.out\n")
	conn.Files["/scratch/exp01/fms.out"] = "..."
	conn.Files["/scratch/exp01/input.nml"] = "..."

	m := &Ocean{}
	m.Archive(vs, oceanExp())
	require.NoError(t, vs.Err)

	full := "/archive/exp01/dataout/ic01/ic2008/01"
	assert.True(t, conn.Ran("mkdir -p "+full+"/ocean/OGCM"))
	assert.True(t, conn.Ran("gzip fms.out"))
	assert.True(t, conn.Ran("mv fms.out.gz "+full+"/output/"))
	assert.False(t, conn.Ran("gzip input.nml"))
	assert.True(t, conn.Ran("mv input.nml "+full+"/output/"))
	assert.False(t, conn.Ran("gone.out"))
	assert.True(t, conn.Ran("cd /scratch/exp01/RESTART && tar czvf 2008011100.tar.gz coupler* ice* land* ocean*"))
	assert.True(t, conn.Ran("mv 2008011100.tar.gz "+full+"/restart/"))
	assert.True(t, conn.Ran(`tar czvf INPUT.tar.gz INPUT/ --exclude="*.res*"`))
}

func TestOceanClean(t *testing.T) {
	conn, vs := newContext()
	m := &Ocean{}
	m.Clean(vs, oceanExp())
	assert.Equal(t, []string{"rm -rf /home/u/exp01/comb"}, conn.Commands)
}

func TestMakeXgrids(t *testing.T) {
	conn, vs := newContext()
	conn.OnExit("-o ocean_grid.nc", 41, "").OnExit("ls grid_spec?.nc", 2, "")
	exp := oceanExp()
	exp["executable_make_xgrids"] = "/exec/make_xgrids"
	exp["atmos_gridx"] = 192
	exp["atmos_gridy"] = 96

	m := &Ocean{}
	m.MakeXgrids(vs, exp)
	require.NoError(t, vs.Err)
	assert.True(t, conn.Ran("/exec/make_xgrids -o ocean_grid.nc -a 192,96"))
	assert.True(t, conn.Ran("cp ocean_grid.nc grid_spec_UNION.nc"))
	assert.True(t, conn.Ran("for file in ocean_grid?.nc"))
	assert.True(t, conn.Ran("ncks -A grid_spec.nc grid_spec_UNION.nc"))
	assert.False(t, conn.Ran("for file in grid_spec?.nc"))
}

func TestMakeXgridsFailure(t *testing.T) {
	conn, vs := newContext()
	conn.OnExit("-o ocean_grid.nc", 1, "")

	m := &Ocean{}
	m.MakeXgrids(vs, oceanExp())
	require.Error(t, vs.Err)
	assert.False(t, conn.Ran("grid_spec_UNION"))
}

func TestRegrid2D(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/home/u/exp01/regrid_2d.nml"] = " &regrid_2d_nml\n    src_file = '/data/sst.nc',\n    dest_grid = 'grid_spec.nc',\n /\n"
	exp := oceanExp()
	exp["regrid_2d_workdir"] = "/scratch/exp01/regrid_2d"
	exp["regrid_2d_namelist"] = conf.Tree{"file": "/home/u/exp01/regrid_2d.nml"}

	m := &Ocean{}
	m.Regrid2D(vs, exp)
	require.NoError(t, vs.Err)
	assert.True(t, conn.Ran("cp /data/sst.nc /scratch/exp01/regrid_2d/src_file.nc"))

	f, err := nml.Decode(conn.Files["/scratch/exp01/regrid_2d/input.nml"])
	require.NoError(t, err)
	v, _ := f.Group("regrid_2d_nml").Get("src_file")
	assert.Equal(t, "src_file.nc", v)
	assert.True(t, conn.Ran("cd /home/u/exp01/runscripts/mom4_pre && "))
	assert.True(t, conn.Ran("/usr/bin/tcsh regrid_2d_run.csh"))
}
