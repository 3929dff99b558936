package folders

import (
	"fmt"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/meteocima/virtual-server/vpath"
)

// Host is the name of the host where experiment directories live.
var Host = "localhost"

// Path returns the directory or file configured at key.
func Path(exp conf.Experiment, key string) vpath.VirtualPath {
	return vpath.New(Host, exp.Str(key))
}

// Workdir ...
func Workdir(exp conf.Experiment) vpath.VirtualPath {
	return Path(exp, "workdir")
}

// Runscripts is the directory holding the submission scripts.
func Runscripts(exp conf.Experiment) vpath.VirtualPath {
	return Path(exp, "expdir").Join("runscripts")
}

// ExpFiles is the directory of the experiment inside the
// clone of the experiments repository.
func ExpFiles(exp conf.Experiment) vpath.VirtualPath {
	return Path(exp, "expfiles").Join("exp/%s", exp.Str("name"))
}

// ResolutionTag returns the TQxxxxLyyy tag of the atmospheric
// resolution.
func ResolutionTag(exp conf.Experiment) (string, error) {
	trc, err := exp.Int("TRC")
	if err != nil {
		return "", err
	}
	lv, err := exp.Int("LV")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TQ%04dL%03d", trc, lv), nil
}

// AtmosDataout is the output directory of the atmospheric model.
func AtmosDataout(exp conf.Experiment) (vpath.VirtualPath, error) {
	tag, err := ResolutionTag(exp)
	if err != nil {
		return vpath.VirtualPath{}, err
	}
	return Workdir(exp).Join("model/dataout/%s", tag), nil
}

// AtmosRestartName returns the prefix of the restart files written
// by the atmospheric model for the run from start to finish.
func AtmosRestartName(exp conf.Experiment, start, finish string) (string, error) {
	tag, err := ResolutionTag(exp)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GFCTNMC%s%sF.unf.%s", start, finish, tag), nil
}

// CouplerRes is the coupler restart file read by the ocean model.
func CouplerRes(exp conf.Experiment) vpath.VirtualPath {
	return Workdir(exp).Join("INPUT/coupler.res")
}

// FmsOut is the log of the ocean model.
func FmsOut(exp conf.Experiment) vpath.VirtualPath {
	return Workdir(exp).Join("fms.out")
}

// ComponentTag returns the name used in the archive for the
// model variant t.
func ComponentTag(t conf.ModelType) string {
	switch t {
	case conf.Atmos:
		return "AGCM"
	case conf.Coupled:
		return "CGCM"
	case conf.Ocean:
		return "OGCM"
	}
	return ""
}

// ArchivePath returns the long term storage directory of the
// experiment, `{hsm}/{name}/dataout/ic{MM}/ic{YYYY}/{DD}` for its
// start date, together with the component tag of its variant.
func ArchivePath(exp conf.Experiment) (vpath.VirtualPath, string, error) {
	if err := exp.Require("hsm", "name", "start"); err != nil {
		return vpath.VirtualPath{}, "", err
	}
	t, err := exp.Type()
	if err != nil {
		return vpath.VirtualPath{}, "", err
	}
	start, err := exp.Date("start")
	if err != nil {
		return vpath.VirtualPath{}, "", err
	}
	return archiveDir(exp.Str("hsm"), exp.Str("name"), start), ComponentTag(t), nil
}

func archiveDir(hsm, name string, start time.Time) vpath.VirtualPath {
	return vpath.New(Host, hsm).Join(
		"%s/dataout/ic%s/ic%s/%s",
		name, start.Format("01"), start.Format("2006"), start.Format("02"),
	)
}
