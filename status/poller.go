package status

import (
	"sort"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/scheduler"
)

// Role of a job in a segment.
type Role int

const (
	// Untracked - a job that does not belong to the segment
	Untracked Role = iota
	// MainJob - the model run
	MainJob
	// OceanPost - ocean post-processing
	OceanPost
	// AtmosPost - atmosphere post-processing
	AtmosPost
)

// Classify returns the role of job among the jobs tracked by exp.
func Classify(exp conf.Experiment, job scheduler.Job) Role {
	switch {
	case job.Matches(exp.Str(conf.JobIDModel)):
		return MainJob
	case job.Matches(exp.Str(conf.JobIDPosOcean)):
		return OceanPost
	case job.Matches(exp.Str(conf.JobIDPosAtmos)):
		return AtmosPost
	}
	return Untracked
}

// Querier returns the jobs among ids still known to the scheduler.
type Querier interface {
	Query(vs *remote.Context, ids []string) []scheduler.Job
}

// ProgressMarker finds the model time reached by a running model
// in its output. found is false when the model printed nothing yet.
type ProgressMarker interface {
	Progress(vs *remote.Context, exp conf.Experiment) (current time.Time, found bool)
}

// Poller follows the tracked jobs of an experiment until they
// leave the queue.
type Poller struct {
	Sched    Querier
	Marker   ProgressMarker
	Interval time.Duration
	Sleep    func(time.Duration)
}

// NewPoller ...
func NewPoller(sched Querier, marker ProgressMarker, interval time.Duration) *Poller {
	return &Poller{Sched: sched, Marker: marker, Interval: interval, Sleep: time.Sleep}
}

// Describe returns the progress line for job, or "" for jobs
// that are not tracked.
func (p *Poller) Describe(vs *remote.Context, exp conf.Experiment, job scheduler.Job) string {
	switch Classify(exp, job) {
	case OceanPost:
		return "Ocean post-processing: " + job.StateDescription()
	case AtmosPost:
		return "Atmos post-processing: " + job.StateDescription()
	case MainJob:
		if job.State != scheduler.Running {
			return "Model: " + job.StateDescription()
		}
		return p.eta(vs, exp, job)
	}
	return ""
}

func (p *Poller) eta(vs *remote.Context, exp conf.Experiment, job scheduler.Job) string {
	current, found := p.Marker.Progress(vs, exp)
	if !found {
		return "Preparing!"
	}

	begin, err := exp.Begin()
	if err != nil {
		vs.Log().Debug("cannot estimate completion", "err", err)
		return "Model: " + job.StateDescription()
	}
	finish, err := exp.Date("finish")
	if err != nil {
		vs.Log().Debug("cannot estimate completion", "err", err)
		return "Model: " + job.StateDescription()
	}
	h, m, err := ParseElapsed(job.Elapsed)
	if err != nil {
		vs.Log().Debug("cannot estimate completion", "err", err)
		return "Model: " + job.StateDescription()
	}

	fraction := Fraction(current, begin, finish)
	remh, remm := CalcETA(h, m, fraction)
	return FormatETA(job.Elapsed, fraction, remh, remm)
}

func (p *Poller) query(vs *remote.Context, exp conf.Experiment) []scheduler.Job {
	jobs := p.Sched.Query(vs, exp.JobIDs())
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// Check prints the state of every tracked job, and keeps polling
// every Interval until no tracked job is left, unless oneshot is
// set. It reports whether any job was in the queue at the first poll.
func (p *Poller) Check(vs *remote.Context, exp conf.Experiment, oneshot bool) bool {
	if vs.Err != nil {
		return false
	}
	console.PrintAction("Checking status")

	jobs := p.query(vs, exp)
	if len(jobs) == 0 {
		console.PrintAction("No jobs running.")
		return false
	}

	for len(jobs) > 0 {
		for _, job := range jobs {
			if line := p.Describe(vs, exp, job); line != "" {
				console.PrintAction("%s", line)
			}
		}
		if oneshot {
			break
		}
		p.Sleep(p.Interval)
		jobs = p.query(vs, exp)
		console.PrintMessage("")
	}
	return true
}

// Wait blocks until no tracked job is left in the queue,
// checking once every Interval.
func (p *Poller) Wait(vs *remote.Context, exp conf.Experiment) {
	for p.Check(vs, exp, true) {
		p.Sleep(p.Interval)
	}
}
