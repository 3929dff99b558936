// Package runner drives experiments through their steps: it
// deploys them, runs them segment by segment, and follows,
// archives, kills and cleans them.
package runner

import (
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/models"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/scheduler"
	"github.com/luizirber/bosun/status"
	"github.com/parro-it/fileargs"
)

// Runner runs the steps of experiments of a single model type.
type Runner struct {
	Model  models.Model
	Sched  scheduler.PBS
	Poller *status.Poller
}

// New returns a Runner for the model type of exp.
func New(exp conf.Experiment, sc conf.SchedulerConf) (*Runner, error) {
	typ, err := exp.Type()
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(sc)
	model, err := models.ForType(typ, sched)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(sc.PollSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		Model:  model,
		Sched:  sched,
		Poller: status.NewPoller(sched, model, interval),
	}, nil
}

// Run runs the experiment from `restart` to `finish`, in segments
// of `restart_interval`. Each segment but the first one is a warm
// restart of the previous.
func (r *Runner) Run(vs *remote.Context, exp conf.Experiment) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("run %s", exp.Str("name"))()

	begin, err := exp.Date("restart")
	if err != nil {
		vs.Err = err
		return
	}
	end, err := exp.Date("finish")
	if err != nil {
		vs.Err = err
		return
	}
	iv, err := exp.RestartInterval()
	if err != nil {
		vs.Err = err
		return
	}

	segments := Segments(begin, end, iv)
	vs.LogInfo("running %s to %s in %d segments of %s",
		conf.FormatDate(begin), conf.FormatDate(end), len(segments), iv)

	for _, seg := range segments {
		r.RunSegment(vs, exp, seg)
		if vs.Err != nil {
			return
		}
	}
}

// RunSegment runs the model on a single period, waits for its jobs
// to complete, and stages its restart files for the next one.
// A cold segment targets the end of the period: both `restart` and
// `finish` are set to it. A warm one runs from `restart` to `finish`.
func (r *Runner) RunSegment(vs *remote.Context, exp conf.Experiment, seg *fileargs.Period) {
	if vs.Err != nil {
		return
	}
	finish := seg.Start.Add(seg.Duration)
	defer vs.SetTask("segment %s", conf.FormatDate(finish))()

	if exp.Mode() == conf.Cold {
		exp.SetDate("restart", finish)
	} else {
		exp.SetDate("restart", seg.Start)
	}
	exp.SetDate("finish", finish)
	segmentLength(exp, seg.Start, finish)

	console.PrintAction("Running %s segment from %s to %s", exp.Mode(), exp.Str("restart"), exp.Str("finish"))

	r.Model.CheckRestart(vs, exp)
	r.Model.PrepareNamelist(vs, exp)
	r.Model.RunModel(vs, exp)
	r.Model.RunPost(vs, exp)
	r.Poller.Wait(vs, exp)
	r.Model.PrepareRestart(vs, exp)

	if vs.Err == nil {
		exp.SetMode(conf.Warm)
		vs.LogInfo("segment ending %s completed", exp.Str("finish"))
	}
}
