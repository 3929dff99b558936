package nml

import (
	"strings"
	"time"

	"github.com/meteocima/namelist-prepare/namelist"
)

// Render fills the date fields of a namelist template with the
// simulated window [start, end].
func Render(text string, start, end time.Time) string {
	tmpl := namelist.Tmpl{}
	tmpl.ReadTemplateFrom(strings.NewReader(text))

	var rendered strings.Builder
	tmpl.RenderTo(namelist.Args{Start: start, End: end}, &rendered)
	return rendered.String()
}
