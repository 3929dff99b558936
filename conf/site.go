package conf

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// RemoteConf describes how to reach the HPC host.
type RemoteConf struct {
	Host    string
	Port    int
	User    string
	KeyFile string
	// Local runs every command on this machine instead of over SSH.
	Local bool
}

// SchedulerConf contains the scheduler commands and
// the status polling period.
type SchedulerConf struct {
	Qsub        string
	Qstat       string
	Qdel        string
	PollSeconds int
}

// ExperimentsConf locates the experiment configuration repository
// and its clone on the remote host.
type ExperimentsConf struct {
	Repo  string
	Files string
}

// LogConf ...
type LogConf struct {
	Level string
}

// SiteConf is the per-user configuration read from `~/.bosun.toml`.
type SiteConf struct {
	Remote      RemoteConf
	Scheduler   SchedulerConf
	Experiments ExperimentsConf
	Log         LogConf
}

// DefaultSite returns the configuration used for every key
// the site file leaves out.
func DefaultSite() SiteConf {
	return SiteConf{
		Remote: RemoteConf{Port: 22},
		Scheduler: SchedulerConf{
			Qsub:        "qsub",
			Qstat:       "qstat",
			Qdel:        "qdel",
			PollSeconds: 60,
		},
		Experiments: ExperimentsConf{
			Repo:  "${ARCHIVE_OCEAN}/exp_repos",
			Files: "${HOME}/.bosun_exps",
		},
		Log: LogConf{Level: "info"},
	}
}

// DefaultSitePath returns `~/.bosun.toml`.
func DefaultSitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bosun.toml"
	}
	return filepath.Join(home, ".bosun.toml")
}

// ReadSite reads the site configuration from `file`. A missing
// file is not an error: defaults are returned.
func ReadSite(file string) (SiteConf, error) {
	site := DefaultSite()
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return site, nil
	}
	if _, err := toml.DecodeFile(file, &site); err != nil {
		return site, NewConfigError("", "malformed site configuration "+file, err)
	}
	if site.Scheduler.PollSeconds <= 0 {
		site.Scheduler.PollSeconds = 60
	}
	if site.Remote.Port == 0 {
		site.Remote.Port = 22
	}
	return site, nil
}
