package scheduler

import (
	"fmt"
	"strings"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/remote"
)

// PBS submits, queries and deletes jobs through the PBS commands
// of the remote host.
type PBS struct {
	Qsub  string
	Qstat string
	Qdel  string
}

// New ...
func New(sc conf.SchedulerConf) PBS {
	p := PBS{Qsub: sc.Qsub, Qstat: sc.Qstat, Qdel: sc.Qdel}
	if p.Qsub == "" {
		p.Qsub = "qsub"
	}
	if p.Qstat == "" {
		p.Qstat = "qstat"
	}
	if p.Qdel == "" {
		p.Qdel = "qdel"
	}
	return p
}

// Submit submits script, to be run after every job in deps completed
// successfully, and returns the new job id.
func (p PBS) Submit(vs *remote.Context, opts *remote.RunOptions, script string, deps ...string) string {
	if vs.Err != nil {
		return ""
	}

	args := []string{p.Qsub}
	if len(deps) > 0 {
		args = append(args, fmt.Sprintf("-W depend=afterok:%s", strings.Join(deps, ":")))
	}
	args = append(args, script)

	res := vs.RunWarn(opts, "%s", strings.Join(args, " "))
	if res.Failed() {
		vs.Err = NewSubmissionError(script, strings.TrimSpace(res.Stdout+res.Stderr),
			fmt.Errorf("qsub exited with status %d", res.ExitCode))
		return ""
	}

	jobID := remote.LastLine(remote.ClearOutput(res.Stdout))
	if jobID == "" {
		vs.Err = fmt.Errorf("%w: %s", ErrJobIDParseFailed, res.Stdout)
		return ""
	}
	vs.Log().Debug("job submitted", "script", script, "id", jobID)
	return jobID
}

// Query returns the jobs among ids still known to the scheduler.
// A failing query is reported as no jobs.
func (p PBS) Query(vs *remote.Context, ids []string) []Job {
	if len(ids) == 0 {
		return nil
	}
	return p.query(vs, fmt.Sprintf("%s -a %s", p.Qstat, strings.Join(ids, " ")))
}

// QueryAll returns every job known to the scheduler.
func (p PBS) QueryAll(vs *remote.Context) []Job {
	return p.query(vs, p.Qstat+" -a")
}

func (p PBS) query(vs *remote.Context, cmd string) []Job {
	res := vs.RunWarn(nil, "%s", cmd)
	if res.Failed() {
		return nil
	}
	return ParseQstat(remote.ClearOutput(res.Stdout))
}

// Delete removes job id from the queue. A job that already left
// the queue is only logged.
func (p PBS) Delete(vs *remote.Context, id string) bool {
	id, _, _ = strings.Cut(id, "-")
	return !vs.RunWarn(nil, "%s %s", p.Qdel, id).Failed()
}
