package scheduler_test

import (
	"errors"
	"testing"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/remote/remotetest"
	"github.com/luizirber/bosun/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	conn := remotetest.New().On("qsub", "HOME=/home/u\n5555.sdb\n")
	vs := remote.New(conn, console.Discard())
	pbs := scheduler.New(conf.DefaultSite().Scheduler)

	id := pbs.Submit(vs, &remote.RunOptions{Cwd: "/exp/runscripts"}, "/work/set_g4c_posgrib.cray", "1234.sdb")
	require.NoError(t, vs.Err)
	assert.Equal(t, "5555.sdb", id)
	assert.Equal(t,
		"cd /exp/runscripts && qsub -W depend=afterok:1234.sdb /work/set_g4c_posgrib.cray",
		conn.Commands[0])

	pbs.Submit(vs, nil, "/work/other.cray")
	assert.Equal(t, "qsub /work/other.cray", conn.Commands[1])
}

func TestSubmitFailure(t *testing.T) {
	conn := remotetest.New().OnExit("qsub", 1, "qsub: Unknown queue")
	vs := remote.New(conn, console.Discard())
	scheduler.New(conf.SchedulerConf{}).Submit(vs, nil, "job.cray")
	assert.True(t, scheduler.IsSubmissionError(vs.Err))

	conn = remotetest.New().On("qsub", "\n")
	vs = remote.New(conn, console.Discard())
	scheduler.New(conf.SchedulerConf{}).Submit(vs, nil, "job.cray")
	assert.True(t, errors.Is(vs.Err, scheduler.ErrJobIDParseFailed))
}

func TestQuery(t *testing.T) {
	out := "Job ID Username Queue Jobname SessID NDS TSK Memory Time S Time\n" +
		"1234.sdb u workq M_exp 1 1 1 -- 08:00 Q --\n"
	conn := remotetest.New().On("qstat -a 1234.sdb 1235.sdb", out)
	vs := remote.New(conn, console.Discard())
	pbs := scheduler.New(conf.DefaultSite().Scheduler)

	jobs := pbs.Query(vs, []string{"1234.sdb", "1235.sdb"})
	require.Len(t, jobs, 1)
	assert.Equal(t, "Q", jobs[0].State)

	assert.Nil(t, pbs.Query(vs, nil))
	assert.Equal(t, 1, len(conn.Commands))
}

func TestQueryFailureMeansNoJobs(t *testing.T) {
	conn := remotetest.New().OnExit("qstat", 153, "qstat: Unknown Job Id 1234.sdb")
	vs := remote.New(conn, console.Discard())
	jobs := scheduler.New(conf.SchedulerConf{}).Query(vs, []string{"1234.sdb"})
	assert.Empty(t, jobs)
	assert.NoError(t, vs.Err)
}

func TestDelete(t *testing.T) {
	conn := remotetest.New()
	vs := remote.New(conn, console.Discard())
	assert.True(t, scheduler.New(conf.SchedulerConf{}).Delete(vs, "1234-sdb"))
	assert.Equal(t, []string{"qdel 1234"}, conn.Commands)
}

func TestDeleteFinishedJob(t *testing.T) {
	conn := remotetest.New().OnExit("qdel", 153, "qdel: Unknown Job Id 1234.sdb")
	vs := remote.New(conn, console.Discard())
	assert.False(t, scheduler.New(conf.SchedulerConf{}).Delete(vs, "1234.sdb"))
	assert.NoError(t, vs.Err)
}
