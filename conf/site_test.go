package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSiteDefaults(t *testing.T) {
	site, err := ReadSite(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSite(), site)
}

func TestReadSite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bosun.toml")
	content := `
[Remote]
Host = "tupa.cptec.inpe.br"
User = "modelos"

[Scheduler]
Qstat = "/opt/pbs/bin/qstat"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	site, err := ReadSite(file)
	require.NoError(t, err)
	assert.Equal(t, "tupa.cptec.inpe.br", site.Remote.Host)
	assert.Equal(t, 22, site.Remote.Port)
	assert.Equal(t, "/opt/pbs/bin/qstat", site.Scheduler.Qstat)
	assert.Equal(t, "qsub", site.Scheduler.Qsub)
	assert.Equal(t, 60, site.Scheduler.PollSeconds)
}

func TestReadSiteMalformed(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bosun.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Remote\nHost="), 0644))
	_, err := ReadSite(file)
	assert.True(t, IsConfigError(err))
}
