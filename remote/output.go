package remote

import "strings"

// Lines printed by some login scripts on the cluster,
// which pollute command output.
var noiseMarkers = []string{"HOME=", "SUBMIT_HOME=", "WORK_HOME=", "TRANSFER_HOME="}

// ClearOutput removes the login script noise from out.
func ClearOutput(out string) string {
	var kept []string
	for _, line := range strings.Split(out, "\n") {
		noisy := false
		for _, marker := range noiseMarkers {
			if strings.Contains(line, marker) {
				noisy = true
				break
			}
		}
		if !noisy {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// LastLine returns the last non blank line of out, trimmed.
func LastLine(out string) string {
	lines := strings.Split(strings.TrimRight(out, "\n\r\t "), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// Quote quotes s for use as a single word in a POSIX shell.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("/._-+=:,@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
