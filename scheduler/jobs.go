package scheduler

import (
	"fmt"
	"regexp"
	"strings"
)

// JobStates describes the single letter PBS job states.
var JobStates = map[string]string{
	"B": "Array job has at least one subjob running.",
	"E": "Job is exiting after having run.",
	"F": "Job is finished.",
	"H": "Job is held.",
	"M": "Job was moved to another server.",
	"Q": "Job is queued.",
	"R": "Job is running.",
	"S": "Job is suspended.",
	"T": "Job is being moved to new location.",
	"U": "Cycle-harvesting job is suspended due to keyboard activity.",
	"W": "Job is waiting for its submitter-assigned start time to be reached.",
	"X": "Subjob has completed execution or has been deleted.",
}

// Running is the state of a job executing on compute nodes.
const Running = "R"

// Job is a row of `qstat -a` output.
type Job struct {
	ID      string
	Name    string
	State   string
	Elapsed string // HH:MM
	// Fields holds every column by header name. When a header name
	// repeats, the rightmost column wins.
	Fields map[string]string
}

// StateDescription ...
func (j Job) StateDescription() string {
	if desc, ok := JobStates[j.State]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown state `%s`.", j.State)
}

// Matches reports whether j is the job identified by id. qstat
// may print a shortened id, so j.ID only needs to be part of id.
func (j Job) Matches(id string) bool {
	return j.ID != "" && id != "" && strings.Contains(id, j.ID)
}

// ParseQstat parses the output of `qstat -a`: every line following
// the "Job ID" header is a job, except separator lines.
func ParseQstat(out string) []Job {
	var header []string
	var jobs []Job
	for _, line := range strings.Split(out, "\n") {
		if header == nil {
			if strings.HasPrefix(line, "Job ID") {
				header = strings.Fields(line)[1:]
			}
			continue
		}

		row := strings.Fields(line)
		if len(row) == 0 || strings.HasPrefix(row[0], "---") {
			continue
		}
		fields := map[string]string{}
		for i, name := range header {
			if i >= len(row) {
				break
			}
			fields[name] = row[i]
		}
		jobs = append(jobs, Job{
			ID:      fields["ID"],
			Name:    fields["Jobname"],
			State:   fields["S"],
			Elapsed: fields["Time"],
			Fields:  fields,
		})
	}
	return jobs
}

var modelJobIDRe = regexp.MustCompile(`.*JobIDmodel:\s*(.*)\s*`)

// ParseModelJobID extracts the id printed by the model run scripts
// as `JobIDmodel: <id>`.
func ParseModelJobID(out string) (string, error) {
	m := modelJobIDRe.FindStringSubmatch(out)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "", fmt.Errorf("%w: %s", ErrJobIDParseFailed, strings.TrimSpace(out))
	}
	return strings.TrimSpace(m[1]), nil
}
