package folders

import (
	"errors"
	"testing"

	"github.com/luizirber/bosun/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchivePath(t *testing.T) {
	exp := conf.Experiment{
		"start": 2008012200,
		"hsm":   "/archive",
		"name":  "base",
	}

	tags := map[string]string{
		"atmos":               "AGCM",
		"coupled":             "CGCM",
		"mom4p1_falsecoupled": "OGCM",
	}
	for typ, tag := range tags {
		exp["type"] = typ
		full, cname, err := ArchivePath(exp)
		require.NoError(t, err)
		assert.Equal(t, "/archive/base/dataout/ic01/ic2008/22", full.Path)
		assert.Equal(t, tag, cname)
	}

	exp["type"] = "wrf"
	_, _, err := ArchivePath(exp)
	assert.True(t, errors.Is(err, conf.ErrUnknownModelType))

	delete(exp, "hsm")
	_, _, err = ArchivePath(exp)
	assert.True(t, conf.IsConfigError(err))
}

func TestResolutionPaths(t *testing.T) {
	exp := conf.Experiment{"workdir": "/scratch/exp01", "TRC": 62, "LV": 28}

	tag, err := ResolutionTag(exp)
	require.NoError(t, err)
	assert.Equal(t, "TQ0062L028", tag)

	dataout, err := AtmosDataout(exp)
	require.NoError(t, err)
	assert.Equal(t, "/scratch/exp01/model/dataout/TQ0062L028", dataout.Path)

	name, err := AtmosRestartName(exp, "2008010100", "2008020100")
	require.NoError(t, err)
	assert.Equal(t, "GFCTNMC20080101002008020100F.unf.TQ0062L028", name)

	_, err = ResolutionTag(conf.Experiment{"TRC": 62})
	assert.True(t, conf.IsConfigError(err))
}

func TestDirs(t *testing.T) {
	exp := conf.Experiment{
		"workdir":  "/scratch/exp01",
		"expdir":   "/home/u/exp01",
		"expfiles": "/home/u/.bosun_exps",
		"name":     "exp01",
	}
	assert.Equal(t, "/scratch/exp01/INPUT/coupler.res", CouplerRes(exp).Path)
	assert.Equal(t, "/scratch/exp01/fms.out", FmsOut(exp).Path)
	assert.Equal(t, "/home/u/exp01/runscripts", Runscripts(exp).Path)
	assert.Equal(t, "/home/u/.bosun_exps/exp/exp01", ExpFiles(exp).Path)
}
