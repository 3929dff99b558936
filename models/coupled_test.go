package models

import (
	"testing"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coupledExp() conf.Experiment {
	exp := oceanExp()
	exp["type"] = string(conf.Coupled)
	exp["DHEXT"] = 0
	exp["agcm_namelist"] = atmosExp()["agcm_namelist"]
	return exp
}

func TestCoupledRunModel(t *testing.T) {
	conn, vs := newContext()
	conn.On("run_g4c_model.cray", "JobIDmodel: 1111.sdb\n")
	exp := coupledExp()

	m := NewCoupled(scheduler.New(conf.SchedulerConf{}))
	m.RunModel(vs, exp)
	require.NoError(t, vs.Err)
	assert.Equal(t, "1111.sdb", exp.Str(conf.JobIDModel))

	cmd := conn.Commands[0]
	assert.Contains(t, cmd, "export TRUNC=0062")
	assert.Contains(t, cmd, "export DHEXT=0")
	assert.Contains(t, cmd, "export execdir=/home/u/exp01/exec")
	assert.Contains(t, cmd, ". run_g4c_model.cray cold 2008010100 2008010100 2008011100 16 exp01")
}

func TestCoupledRunPost(t *testing.T) {
	conn, vs := newContext()
	conn.On("set_g4c_pos_m4g4", "1.sdb\n").On("set_g4c_posgrib", "2.sdb\n")
	exp := coupledExp()
	exp.Set(conf.JobIDModel, "1111.sdb")

	m := NewCoupled(scheduler.New(conf.SchedulerConf{}))
	m.RunPost(vs, exp)
	require.NoError(t, vs.Err)
	assert.Equal(t, "1.sdb", exp.Str(conf.JobIDPosOcean))
	assert.Equal(t, "2.sdb", exp.Str(conf.JobIDPosAtmos))
	assert.Equal(t, 2, conn.Count("qsub -W depend=afterok:1111.sdb"))
}

func TestCoupledPrepareNamelist(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/home/u/exp01/input.nml"] = oceanTemplate
	conn.Files["/home/u/exp01/MODELIN"] = atmosTemplate

	m := NewCoupled(scheduler.PBS{})
	m.PrepareNamelist(vs, coupledExp())
	require.NoError(t, vs.Err)
	assert.Contains(t, conn.Files, "/scratch/exp01/input.nml")
	assert.Contains(t, conn.Files, "/scratch/exp01/MODELIN")
}

func TestCoupledCompile(t *testing.T) {
	conn, vs := newContext()
	exp := coupledExp()
	exp["cpld_makeconf"] = "/home/u/exp01/cpld.csh"
	exp["comb_src"] = "/src/post"
	exp["pre_atmos"] = "/src/pre"
	exp["posgrib_src"] = "/src/pos"

	m := NewCoupled(scheduler.PBS{})
	m.Compile(vs, exp)
	require.NoError(t, vs.Err)
	assert.Contains(t, conn.Commands[0], "/usr/bin/tcsh -e /home/u/exp01/cpld.csh")
	assert.True(t, conn.Ran("make -f /src/post/Make_combine"))
	assert.Equal(t, 2, conn.Count("make cray"))
}

func TestCoupledPrepare(t *testing.T) {
	conn, vs := newContext()
	m := NewCoupled(scheduler.PBS{})
	m.Prepare(vs, coupledExp())
	require.NoError(t, vs.Err)
	assert.True(t, conn.Ran("mkdir -p /home/u/exp01/comb"))
	assert.True(t, conn.Ran("mkdir -p /scratch/exp01/DRIFTERS"))
	assert.True(t, conn.Ran("touch /scratch/exp01/time_stamp.restart"))
	assert.True(t, conn.Ran("mkdir -p /scratch/exp01/root/AGCM-1.0/pos/datain"))
	assert.False(t, conn.Ran("path2"))
}

func TestCoupledCheckRestart(t *testing.T) {
	conn, vs := newContext()
	conn.Files["/scratch/exp01/INPUT/coupler.res"] = couplerRes
	conn.On("tail -1", "  2008     1    11     0     0     0        Current model time\n")
	exp := coupledExp()
	exp["mode"] = "warm"
	exp["restart"] = "2008011100"

	m := NewCoupled(scheduler.PBS{})
	m.CheckRestart(vs, exp)
	require.NoError(t, vs.Err)
	assert.True(t, conn.Ran("tail -1 /scratch/exp01/INPUT/coupler.res"))
	assert.True(t, conn.Ran("outatt"))
}

func TestCoupledClean(t *testing.T) {
	conn, vs := newContext()
	m := NewCoupled(scheduler.PBS{})
	m.Clean(vs, coupledExp())
	assert.Equal(t, []string{"rm -rf /home/u/exp01/comb"}, conn.Commands)
}

func TestInstrument(t *testing.T) {
	conn, vs := newContext()
	exp := atmosExp()
	exp["atmos_makeconf"] = "/home/u/exp01/Makefile.atmos"
	conn.Files["/home/u/exp01/exec/model.x+apa"] = "old"

	Instrument(vs, exp, &Atmos{})
	require.NoError(t, vs.Err)

	assert.True(t, conn.Ran("module load perftools && make -f /home/u/exp01/Makefile.atmos"))
	assert.True(t, conn.Ran("module load perftools && rm /home/u/exp01/exec/model.x+apa"))
	assert.True(t, conn.Ran("module load perftools && pat_build -O /home/u/exp01/instrument_coupler.apa "+
		"-o /home/u/exp01/exec/model.x+apa /home/u/exp01/exec/model.x"))
	assert.Equal(t, "/home/u/exp01/exec/model.x+apa", exp.Str("executable"))

	vs.Run(nil, "ls")
	assert.Equal(t, "ls", conn.Commands[len(conn.Commands)-1])
}
