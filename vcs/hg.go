// Package vcs keeps the model sources and the experiment files
// checked out on the remote host, through Mercurial.
package vcs

import (
	"strings"

	"github.com/luizirber/bosun/conf"
	"github.com/luizirber/bosun/console"
	"github.com/luizirber/bosun/folders"
	"github.com/luizirber/bosun/remote"
	"github.com/meteocima/virtual-server/vpath"
)

// lastRevision selects the tip of the branch.
const lastRevision = "last"

// Clone replaces dir with a fresh clone of repo.
func Clone(vs *remote.Context, repo string, dir vpath.VirtualPath) {
	if vs.Err != nil {
		return
	}
	defer vs.SetTask("clone `%s`", repo)()

	if vs.Exists(dir) {
		vs.RmDir(dir)
	}
	vs.Run(nil, "hg clone %s %s", repo, remote.Quote(dir.Path))
}

// Sync brings the checkout in `code_dir` to `code_branch`, and to
// `revision` when one is set, cloning `code_repo` if needed. It
// reports whether the sources changed, or the executable is missing,
// so the model needs to be compiled.
func Sync(vs *remote.Context, exp conf.Experiment) bool {
	if vs.Err != nil {
		return false
	}
	defer vs.SetTask("check code")()
	console.PrintAction("Checking code")

	if err := exp.Require("code_dir", "code_repo", "code_branch"); err != nil {
		vs.Err = err
		return false
	}

	changed := false
	codeDir := folders.Path(exp, "code_dir")
	if exp.Bool("clean_checkout") {
		vs.RmDir(codeDir)
		changed = true
	}

	if !vs.Exists(codeDir) {
		console.PrintAction("Creating new repository")
		vs.MkDir(codeDir)
		vs.Run(nil, "hg clone %s %s", exp.Str("code_repo"), remote.Quote(codeDir.Path))
		changed = true
	}

	console.PrintAction("Updating existing repository")
	opts := &remote.RunOptions{Cwd: codeDir.Path}
	branch := exp.Str("code_branch")

	if res := vs.RunWarn(opts, "hg incoming -b %s", branch); res.ExitCode == 0 {
		vs.LogInfo("new changes in branch %s", branch)
		vs.Run(opts, "hg pull")
		changed = true
	}

	current := strings.TrimRight(remote.LastLine(remote.ClearOutput(vs.Run(opts, "hg id -i"))), "+")
	vs.Run(opts, "hg update %s --clean", branch)

	if rev := exp.Str("revision"); rev != "" && rev != lastRevision && rev != current {
		vs.Run(opts, "hg update -r%s", rev)
		changed = true
	}

	if !vs.Exists(folders.Path(exp, "executable")) {
		changed = true
	}

	return changed && vs.Err == nil
}
