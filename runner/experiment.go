package runner

import (
	"os"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/vcs"
)

// Source tells where the configuration of an experiment is read from.
type Source struct {
	// Name of the experiment in the experiments repository.
	Name string
	// ConfigFile, when set, is a local YAML file read in place
	// of the repository.
	ConfigFile string
	// ExpRepo is the experiments repository, ExpFiles the directory
	// where it is cloned on the remote host. Both may contain
	// placeholders.
	ExpRepo  string
	ExpFiles string
	// Overrides replace whole keys of the configuration.
	Overrides conf.Tree
	// Member selects a single member of an ensemble.
	Member string
}

// LoadExperiments reads and expands the configuration described by
// src. An ensemble gives one experiment per member, sorted by name,
// unless src selects one of them.
func LoadExperiments(vs *remote.Context, src Source) ([]conf.Experiment, error) {
	if vs.Err != nil {
		return nil, vs.Err
	}
	defer vs.SetTask("load experiment %s", src.Name)()

	repo := src.ExpRepo
	if src.ConfigFile != "" {
		repo = ""
	}
	lookup := vs.EnvLookup()
	boot, err := conf.Expand(conf.Tree{
		"exp_repo": repo,
		"name":     src.Name,
		"expfiles": src.ExpFiles,
	}, nil, lookup)
	if err != nil {
		return nil, err
	}
	bootExp := conf.Experiment(boot)

	doc, err := readDocument(vs, src, bootExp)
	if err != nil {
		return nil, err
	}

	overrides := conf.Tree{}
	for k, v := range src.Overrides {
		overrides[k] = v
	}
	overrides["expfiles"] = bootExp.Str("expfiles")
	if src.Name != "" {
		overrides["name"] = bootExp.Str("name")
	}

	exp, err := conf.Load(doc, overrides, lookup)
	if err != nil {
		return nil, err
	}

	if src.Member != "" {
		member, err := exp.Member(src.Member)
		if err != nil {
			return nil, err
		}
		return []conf.Experiment{member}, nil
	}

	names := exp.Members()
	if len(names) == 0 {
		return []conf.Experiment{exp.Base()}, nil
	}
	res := make([]conf.Experiment, 0, len(names))
	for _, name := range names {
		member, err := exp.Member(name)
		if err != nil {
			return nil, err
		}
		res = append(res, member)
	}
	return res, nil
}

// readDocument returns the YAML configuration of the experiment,
// from the local file when one is given, or else from a fresh clone
// of the experiments repository.
func readDocument(vs *remote.Context, src Source, boot conf.Experiment) ([]byte, error) {
	if src.ConfigFile != "" {
		doc, err := os.ReadFile(src.ConfigFile)
		if err != nil {
			return nil, conf.NewConfigError("", "cannot read "+src.ConfigFile, err)
		}
		return doc, nil
	}

	for _, key := range []string{"name", "exp_repo", "expfiles"} {
		if boot.Str(key) == "" {
			return nil, conf.NewConfigError(key, "missing required key", nil)
		}
	}
	console.PrintAction("Fetching configuration of %s", boot.Str("name"))
	vcs.Clone(vs, boot.Str("exp_repo"), folders.Path(boot, "expfiles"))
	doc := vs.ReadString(folders.ExpFiles(boot).Join("namelist.yaml"))
	if vs.Err != nil {
		return nil, vs.Err
	}
	return []byte(doc), nil
}
