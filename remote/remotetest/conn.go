// Package remotetest provides a scripted connection for tests.
package remotetest

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/luizirber/bosun/remote"
	"github.com/meteocima/virtual-server/connection"
	"github.com/meteocima/virtual-server/vpath"
)

type script struct {
	match   string
	results []remote.Result
}

// Conn is a fake connection. Commands are answered by the first
// script whose match is a substring of the command; scripts with
// several results answer with each in turn, and then keep repeating
// the last one. Unmatched commands succeed with no output.
// Files are kept in memory, by path.
type Conn struct {
	mu       sync.Mutex
	scripts  []*script
	Files    map[string]string
	Commands []string
	Closed   bool
}

var _ connection.Connection = (*Conn)(nil)

// New ...
func New() *Conn {
	return &Conn{Files: map[string]string{}}
}

// On scripts commands containing match to succeed printing stdout.
// Repeated calls with the same match queue further answers.
func (c *Conn) On(match string, stdout ...string) *Conn {
	for _, out := range stdout {
		c.OnResult(match, remote.Result{Stdout: out})
	}
	return c
}

// OnExit scripts commands containing match to exit with code.
func (c *Conn) OnExit(match string, code int, stdout string) *Conn {
	return c.OnResult(match, remote.Result{Stdout: stdout, ExitCode: code})
}

// OnResult ...
func (c *Conn) OnResult(match string, res remote.Result) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.scripts {
		if s.match == match {
			s.results = append(s.results, res)
			return c
		}
	}
	c.scripts = append(c.scripts, &script{match: match, results: []remote.Result{res}})
	return c
}

type process struct {
	code int
}

func (p process) Kill() error {
	return nil
}

func (p process) Wait() (int, error) {
	return p.code, nil
}

// Run records the shell line, the last of args, and answers
// it from the scripts.
func (c *Conn) Run(command vpath.VirtualPath, args []string, options connection.RunOptions) (connection.Process, error) {
	cmd := command.Path
	if len(args) > 0 {
		cmd = args[len(args)-1]
	}

	res := c.answer(cmd)
	if options.Stdout != nil {
		io.WriteString(options.Stdout, res.Stdout)
	}
	if options.Stderr != nil {
		io.WriteString(options.Stderr, res.Stderr)
	}
	return process{code: res.ExitCode}, nil
}

func (c *Conn) answer(cmd string) remote.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Commands = append(c.Commands, cmd)
	for _, s := range c.scripts {
		if !strings.Contains(cmd, s.match) {
			continue
		}
		res := s.results[0]
		if len(s.results) > 1 {
			s.results = s.results[1:]
		}
		return res
	}
	return remote.Result{}
}

// Ran reports whether a command containing part was run.
func (c *Conn) Ran(part string) bool {
	return c.Count(part) > 0
}

// Count returns how many commands containing part were run.
func (c *Conn) Count(part string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, cmd := range c.Commands {
		if strings.Contains(cmd, part) {
			n++
		}
	}
	return n
}

// Name ...
func (c *Conn) Name() string {
	return remote.LocalHost
}

// Open ...
func (c *Conn) Open() error {
	return nil
}

// Close ...
func (c *Conn) Close() error {
	c.Closed = true
	return nil
}

// OpenReader ...
func (c *Conn) OpenReader(file vpath.VirtualPath) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.Files[file.Path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: file.Path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type fileWriter struct {
	bytes.Buffer
	close func(string)
}

func (w *fileWriter) Close() error {
	w.close(w.String())
	return nil
}

func (c *Conn) writer(path, initial string) *fileWriter {
	w := &fileWriter{close: func(content string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.Files[path] = content
	}}
	w.WriteString(initial)
	return w
}

// OpenWriter stores the file when the writer is closed.
func (c *Conn) OpenWriter(file vpath.VirtualPath) (io.WriteCloser, error) {
	return c.writer(file.Path, ""), nil
}

// OpenAppendWriter ...
func (c *Conn) OpenAppendWriter(file vpath.VirtualPath) (io.WriteCloser, error) {
	c.mu.Lock()
	initial := c.Files[file.Path]
	c.mu.Unlock()
	return c.writer(file.Path, initial), nil
}

func (c *Conn) exists(path string) bool {
	if _, ok := c.Files[path]; ok {
		return true
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	for name := range c.Files {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Stat reports a path as existing when it is a file, or a
// directory containing files.
func (c *Conn) Stat(paths ...vpath.VirtualPath) (chan *connection.VirtualFileInfo, chan error) {
	infos := make(chan *connection.VirtualFileInfo, len(paths))
	errs := make(chan error, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		if !c.exists(p.Path) {
			errs <- &fs.PathError{Op: "stat", Path: p.Path, Err: fs.ErrNotExist}
			break
		}
		infos <- &connection.VirtualFileInfo{Path: p}
	}
	close(infos)
	close(errs)
	return infos, errs
}

// ReadDir lists the files directly inside dir.
func (c *Conn) ReadDir(dir vpath.VirtualPath) (vpath.VirtualPathList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(dir.Path, "/") + "/"
	seen := map[string]bool{}
	var res vpath.VirtualPathList
	for name := range c.Files {
		rest := strings.TrimPrefix(name, prefix)
		if rest == name {
			continue
		}
		child := strings.SplitN(rest, "/", 2)[0]
		if !seen[child] {
			seen[child] = true
			res = append(res, dir.Join(child))
		}
	}
	sort.Sort(res)
	return res, nil
}

// Glob is not supported.
func (c *Conn) Glob(pattern vpath.VirtualPath) (vpath.VirtualPathList, error) {
	return nil, fmt.Errorf("Glob `%s`: not supported by remotetest.Conn", pattern.String())
}

// MkDir ...
func (c *Conn) MkDir(dir vpath.VirtualPath) error {
	c.answer("mkdir -p " + dir.Path)
	return nil
}

// RmDir removes dir and the files it contains.
func (c *Conn) RmDir(dir vpath.VirtualPath) error {
	c.answer("rm -rf " + dir.Path)
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(dir.Path, "/") + "/"
	for name := range c.Files {
		if strings.HasPrefix(name, prefix) {
			delete(c.Files, name)
		}
	}
	return nil
}

// RmFile ...
func (c *Conn) RmFile(file vpath.VirtualPath) error {
	c.answer("rm " + file.Path)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Files, file.Path)
	return nil
}

// Link ...
func (c *Conn) Link(source, target vpath.VirtualPath) error {
	c.answer("ln -s " + source.Path + " " + target.Path)
	return nil
}
