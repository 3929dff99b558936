package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/nml"
	"github.com/luizirber/bosun/remote"
	"github.com/meteocima/virtual-server/vpath"
)

// loadNamelist reads the template of the namelist configured at key,
// renders it for the current segment and overlays the values the
// experiment sets in its `vars`.
func loadNamelist(vs *remote.Context, exp conf.Experiment, key string) *nml.File {
	if vs.Err != nil {
		return nil
	}
	nc, err := exp.Namelist(key)
	if err != nil {
		vs.Err = err
		return nil
	}

	text := vs.ReadString(vpath.New(folders.Host, nc.File))
	if vs.Err != nil {
		return nil
	}
	if begin, finish, ok := segmentWindow(exp); ok {
		text = nml.Render(text, begin, finish)
	}
	file, err := nml.Decode(text)
	if err != nil {
		vs.Err = fmt.Errorf("Cannot decode namelist `%s`: %w", nc.File, err)
		return nil
	}

	vars := make(map[string]map[string]interface{}, len(nc.Vars))
	for section, values := range nc.Vars {
		vars[section] = values
	}
	for _, added := range file.Overlay(vars) {
		vs.Log().Debug("namelist key not in template", "file", nc.File, "key", added)
	}
	return file
}

// segmentWindow returns the dates the current segment integrates
// between, when the experiment has them.
func segmentWindow(exp conf.Experiment) (time.Time, time.Time, bool) {
	begin, err := exp.Begin()
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	finish, err := exp.Date("finish")
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return begin, finish, true
}

// nmlValue returns the value at key as a namelist value. Strings are
// written verbatim, since they usually hold Fortran literals.
func nmlValue(exp conf.Experiment, key string) interface{} {
	if s, isStr := exp[key].(string); isStr {
		return nml.Raw(s)
	}
	return exp[key]
}

// Layout returns the processor decomposition, as columns and rows,
// closest to square for npes processors.
func Layout(npes int) (int, int) {
	if npes <= 0 {
		return 0, 0
	}
	for rows := int(math.Sqrt(float64(npes))); rows > 1; rows-- {
		if npes%rows == 0 {
			return npes / rows, rows
		}
	}
	return npes, 1
}

func layoutValue(npes int) nml.Raw {
	x, y := Layout(npes)
	return nml.Raw(fmt.Sprintf("%d,%d", x, y))
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
