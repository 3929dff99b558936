package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/remote"
	"github.com/luizirber/bosun/runner"
	"github.com/meteocima/virtual-server/connection"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Version of the command
var Version string = "development"

var (
	siteFile   string
	configFile string
	expRepo    string
	expFiles   string
	member     string
	setFlags   []string
	debugMode  bool
	oneshot    bool
)

var rootCmd = &cobra.Command{
	Use:   "bosun",
	Short: "Deploy, run and follow atmosphere, ocean and coupled model experiments on HPC clusters.",
	Long: `bosun deploys model experiments on a remote cluster, runs them in restart
segments through the PBS scheduler, follows their jobs and archives their outputs.

Experiments are read from the experiments repository, cloned on the remote host,
by NAME, or from a local YAML file given with --config.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// step is an operation run on each experiment selected on the command line.
type step func(r *runner.Runner, vs *remote.Context, exp conf.Experiment)

func experimentCmd(use, short string, run step) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [NAME]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachExperiment(args, run)
		},
	}
}

func preProcessCmd(use, short string, tool runner.PreTool) *cobra.Command {
	return experimentCmd(use, short, func(r *runner.Runner, vs *remote.Context, exp conf.Experiment) {
		r.PreProcess(vs, exp, tool)
	})
}

var checkStatusCmd = experimentCmd("check-status", "Print the state of the jobs of an experiment, until they complete",
	func(r *runner.Runner, vs *remote.Context, exp conf.Experiment) {
		r.CheckStatus(vs, exp, oneshot)
	})

var expandCmd = experimentCmd("expand", "Print the expanded configuration of an experiment",
	func(r *runner.Runner, vs *remote.Context, exp conf.Experiment) {
		doc, err := exp.Dump()
		if err != nil {
			vs.Err = err
			return
		}
		fmt.Fprintf(console.Out, "---\n%s", doc)
	})

var segmentsCmd = experimentCmd("segments", "Print the restart segments an experiment would run",
	func(r *runner.Runner, vs *remote.Context, exp conf.Experiment) {
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
		for _, p := range runner.Segments(begin, end, iv) {
			fmt.Fprintln(console.Out, p.String())
		}
	})

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&siteFile, "site", conf.DefaultSitePath(), "site configuration file")
	flags.StringVarP(&configFile, "config", "c", "", "read the experiment from a local YAML file")
	flags.StringVar(&expRepo, "exp-repo", "", "experiments repository (default from the site configuration)")
	flags.StringVar(&expFiles, "expfiles", "", "where the experiments repository is cloned on the remote host")
	flags.StringVarP(&member, "member", "m", "", "run a single member of an ensemble")
	flags.StringArrayVarP(&setFlags, "set", "s", nil, "override a configuration key, as key=value")
	flags.BoolVar(&debugMode, "debug", false, "log every remote command")

	checkStatusCmd.Flags().BoolVar(&oneshot, "oneshot", false, "check once and exit")

	rootCmd.AddCommand(
		experimentCmd("deploy", "Prepare an experiment and compile its model when sources changed", (*runner.Runner).Deploy),
		experimentCmd("deploy-and-run", "Deploy an experiment and run it", (*runner.Runner).DeployAndRun),
		experimentCmd("prepare", "Create the directories of an experiment", (*runner.Runner).Prepare),
		experimentCmd("compile", "Compile the model of an experiment", (*runner.Runner).Compile),
		experimentCmd("instrument", "Compile the model with performance instrumentation", (*runner.Runner).Instrument),
		experimentCmd("run", "Run an experiment from its restart date to its finish date", (*runner.Runner).Run),
		experimentCmd("restart", "Run an experiment as a warm restart", (*runner.Runner).Restart),
		experimentCmd("archive", "Move the outputs of an experiment to long term storage", (*runner.Runner).Archive),
		experimentCmd("kill-experiment", "Delete every queued job of an experiment", (*runner.Runner).Kill),
		experimentCmd("clean-experiment", "Remove every directory of an experiment", (*runner.Runner).Clean),
		checkStatusCmd,
		expandCmd,
		segmentsCmd,
		preProcessCmd("generate-grid", "Generate the ocean grid", runner.GenerateGrid),
		preProcessCmd("make-xgrids", "Make the exchange grids between ocean and atmosphere", runner.MakeXgrids),
		preProcessCmd("regrid-3d", "Regrid a 3d field onto the ocean grid", runner.Regrid3D),
		preProcessCmd("regrid-2d", "Regrid a 2d field onto the ocean grid", runner.Regrid2D),
	)
}

// parseOverrides parses key=value pairs. Values are YAML scalars,
// so numbers and booleans keep their type.
func parseOverrides(pairs []string) (conf.Tree, error) {
	res := conf.Tree{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, conf.NewConfigError("", fmt.Sprintf("malformed override `%s`, expected key=value", pair), nil)
		}
		var parsed interface{}
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil || parsed == nil {
			parsed = value
		}
		res[key] = parsed
	}
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func dial(site conf.SiteConf) (connection.Connection, error) {
	conn, err := remote.Dial(site.Remote)
	if err != nil {
		return nil, err
	}
	folders.Host = conn.Name()
	return conn, nil
}

func forEachExperiment(args []string, run step) error {
	if len(args) == 0 && configFile == "" {
		return conf.NewConfigError("", "an experiment NAME or --config is required", nil)
	}
	var name string
	if len(args) == 1 {
		name = args[0]
	}

	site, err := conf.ReadSite(siteFile)
	if err != nil {
		return err
	}
	overrides, err := parseOverrides(setFlags)
	if err != nil {
		return err
	}

	level := site.Log.Level
	if debugMode {
		level = "debug"
	}
	conn, err := dial(site)
	if err != nil {
		return err
	}
	defer conn.Close()
	vs := remote.New(conn, console.NewLogger(level, os.Stderr))

	exps, err := runner.LoadExperiments(vs, runner.Source{
		Name:       name,
		ConfigFile: configFile,
		ExpRepo:    firstNonEmpty(expRepo, site.Experiments.Repo),
		ExpFiles:   firstNonEmpty(expFiles, site.Experiments.Files),
		Overrides:  overrides,
		Member:     member,
	})
	if err != nil {
		return err
	}

	for _, exp := range exps {
		r, err := runner.New(exp, site.Scheduler)
		if err != nil {
			return err
		}
		if len(exps) > 1 {
			console.PrintTitle("Member %s", exp.Str("name"))
		}
		run(r, vs, exp)
		if vs.Err != nil {
			return fmt.Errorf("%s: %w", exp.Str("name"), vs.Err)
		}
	}
	console.PrintSuccess("Done.")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		console.PrintError("%s", err)
		os.Exit(1)
	}
}
