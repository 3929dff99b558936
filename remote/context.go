package remote

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/luizirber/bosun/conf"
	"github.com/meteocima/virtual-server/connection"
	"github.com/meteocima/virtual-server/vpath"
)

// Context runs the steps of an invocation on a connection.
// The first failure is kept in Err, and every following
// operation does nothing until Err is cleared.
type Context struct {
	Err      error
	conn     connection.Connection
	log      *slog.Logger
	task     string
	prefixes []string
}

// RunOptions are applied, in order, before a command runs:
// change directory to Cwd, export Env, source each file in Source.
type RunOptions struct {
	Cwd    string
	Env    map[string]string
	Source []string
}

// New creates a Context running commands on conn.
func New(conn connection.Connection, log *slog.Logger) *Context {
	return &Context{conn: conn, log: log}
}

// Log returns the detail logger.
func (vs *Context) Log() *slog.Logger {
	return vs.log
}

// LogInfo ...
func (vs *Context) LogInfo(format string, args ...interface{}) {
	vs.log.Info(fmt.Sprintf(format, args...), "task", vs.task)
}

// SetTask names the step currently running and returns a
// function that logs its outcome, to be deferred.
func (vs *Context) SetTask(format string, args ...interface{}) func() {
	prev := vs.task
	vs.task = fmt.Sprintf(format, args...)
	vs.log.Debug("task started", "task", vs.task)
	return func() {
		if vs.Err != nil {
			vs.log.Error("task failed", "task", vs.task, "err", vs.Err)
		} else {
			vs.log.Debug("task completed", "task", vs.task)
		}
		vs.task = prev
	}
}

// Prefix runs every following command after prefix, until the
// returned function is called.
func (vs *Context) Prefix(format string, args ...interface{}) func() {
	vs.prefixes = append(vs.prefixes, fmt.Sprintf(format, args...))
	n := len(vs.prefixes) - 1
	return func() {
		vs.prefixes = vs.prefixes[:n]
	}
}

func (vs *Context) command(opts *RunOptions, cmd string) string {
	if len(vs.prefixes) == 0 {
		return Command(opts, cmd)
	}
	return Command(opts, strings.Join(append(append([]string(nil), vs.prefixes...), cmd), " && "))
}

// Command composes the shell line that runs cmd with opts.
func Command(opts *RunOptions, cmd string) string {
	if opts == nil {
		return cmd
	}
	var parts []string
	if opts.Cwd != "" {
		parts = append(parts, "cd "+Quote(opts.Cwd))
	}
	names := make([]string, 0, len(opts.Env))
	for name := range opts.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("export %s=%s", name, Quote(opts.Env[name])))
	}
	for _, file := range opts.Source {
		parts = append(parts, "source "+Quote(file))
	}
	parts = append(parts, cmd)
	return strings.Join(parts, " && ")
}

// exec runs cmd in a bash login shell on the connection, so that
// the environment of the remote user is loaded. Output is collected
// in files: a LocalConnection process Wait does not wait for pipe copies.
func (vs *Context) exec(cmd string) (Result, error) {
	stdout, err := os.CreateTemp("", "bosun-stdout")
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer removeTemp(stdout)
	stderr, err := os.CreateTemp("", "bosun-stderr")
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer removeTemp(stderr)

	// SSHConnection joins the arguments in a single command line
	args := []string{"-l", "-c", cmd}
	if _, ok := vs.conn.(*connection.SSHConnection); ok {
		args[2] = Quote(cmd)
	}

	proc, err := vs.conn.Run(vpath.New(vs.conn.Name(), "bash"), args, connection.RunOptions{
		Stdin:  strings.NewReader(""),
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	code, err := proc.Wait()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	return Result{Stdout: readTemp(stdout), Stderr: readTemp(stderr), ExitCode: code}, nil
}

func removeTemp(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

func readTemp(f *os.File) string {
	content, _ := os.ReadFile(f.Name())
	return string(content)
}

// RunWarn runs a command and returns its outcome. Failures are
// logged and returned, never recorded in Err. It does nothing
// when Err is already set.
func (vs *Context) RunWarn(opts *RunOptions, format string, args ...interface{}) Result {
	if vs.Err != nil {
		return Result{ExitCode: -1}
	}
	cmd := vs.command(opts, fmt.Sprintf(format, args...))
	vs.log.Debug("run", "cmd", cmd)

	res, err := vs.exec(cmd)
	if err != nil {
		vs.log.Warn("command not run", "cmd", cmd, "err", err)
		return Result{ExitCode: -1, Stderr: err.Error()}
	}
	if res.Failed() {
		vs.log.Warn("command failed", "cmd", cmd, "status", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))
	}
	return res
}

// Run runs a command and returns its standard output, with the
// trailing newline removed. A failure is recorded in Err as a
// CommandError.
func (vs *Context) Run(opts *RunOptions, format string, args ...interface{}) string {
	if vs.Err != nil {
		return ""
	}
	cmd := vs.command(opts, fmt.Sprintf(format, args...))
	vs.log.Debug("run", "cmd", cmd)

	res, err := vs.exec(cmd)
	if err != nil {
		vs.Err = &CommandError{Cmd: cmd, ExitCode: -1, Err: err}
		return ""
	}
	if res.Failed() {
		vs.Err = &CommandError{Cmd: cmd, ExitCode: res.ExitCode, Output: res.Stdout + res.Stderr}
		return ""
	}
	return strings.TrimRight(res.Stdout, "\n")
}

// Exists ...
func (vs *Context) Exists(file vpath.VirtualPath) bool {
	if vs.Err != nil {
		return false
	}
	infos, errs := vs.conn.Stat(file)
	<-infos
	err := <-errs
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil {
		vs.Err = fmt.Errorf("Exists `%s`: %w", file.String(), err)
		return false
	}
	return true
}

// MkDir creates dir and its parents.
func (vs *Context) MkDir(dir vpath.VirtualPath) {
	vs.Run(nil, "mkdir -p %s", Quote(dir.Path))
}

// RmDir removes dir and its content.
func (vs *Context) RmDir(dir vpath.VirtualPath) {
	vs.Run(nil, "rm -rf %s", Quote(dir.Path))
}

// Link creates, or replaces, a symbolic link at `to` pointing to `from`.
func (vs *Context) Link(from, to vpath.VirtualPath) {
	vs.Run(nil, "ln -sfn %s %s", Quote(from.Path), Quote(to.Path))
}

// Touch ...
func (vs *Context) Touch(file vpath.VirtualPath) {
	vs.Run(nil, "touch %s", Quote(file.Path))
}

// Rsync copies `from` into `to`, dereferencing links. `from`
// is passed to the shell unquoted, so it can be a glob.
func (vs *Context) Rsync(from, to vpath.VirtualPath) {
	vs.Run(nil, "rsync -rtL --progress %s %s", from.Path, Quote(to.Path))
}

// ReadString reads the content of file.
func (vs *Context) ReadString(file vpath.VirtualPath) string {
	if vs.Err != nil {
		return ""
	}
	reader, err := vs.conn.OpenReader(file)
	if err != nil {
		vs.Err = fmt.Errorf("ReadString `%s`: %w", file.String(), err)
		return ""
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		vs.Err = fmt.Errorf("ReadString `%s`: %w", file.String(), err)
		return ""
	}
	return string(content)
}

// WriteString replaces the content of file.
func (vs *Context) WriteString(file vpath.VirtualPath, content string) {
	if vs.Err != nil {
		return
	}
	vs.log.Debug("write", "file", file.String(), "bytes", len(content))
	writer, err := vs.conn.OpenWriter(file)
	if err != nil {
		vs.Err = fmt.Errorf("WriteString `%s`: %w", file.String(), err)
		return
	}
	if _, err := io.WriteString(writer, content); err != nil {
		writer.Close()
		vs.Err = fmt.Errorf("WriteString `%s`: %w", file.String(), err)
		return
	}
	if err := writer.Close(); err != nil {
		vs.Err = fmt.Errorf("WriteString `%s`: %w", file.String(), err)
	}
}

// Getenv asks the login shell of the remote host for the value of
// environment variable name. Unset and empty variables are errors.
func (vs *Context) Getenv(name string) (string, error) {
	cmd := fmt.Sprintf(`if [ "${%[1]s}" ]; then echo "${%[1]s}"; else exit -1; fi`, name)
	vs.log.Debug("run", "cmd", cmd)
	res, err := vs.exec(cmd)
	if err != nil {
		return "", &CommandError{Cmd: cmd, ExitCode: -1, Err: err}
	}
	if res.Failed() {
		return "", &CommandError{Cmd: cmd, ExitCode: res.ExitCode, Output: res.Stderr}
	}
	return LastLine(ClearOutput(res.Stdout)), nil
}

// EnvLookup returns a lookup function, for the configuration
// expander, that reads names from the remote environment.
func (vs *Context) EnvLookup() conf.LookupFunc {
	return func(name string) (string, error) {
		value, err := vs.Getenv(name)
		if err == nil {
			vs.log.Debug("environment lookup", "name", name, "value", value)
		}
		return value, err
	}
}
