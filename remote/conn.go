package remote

import (
	"os"
	"path/filepath"

	"github.com/luizirber/bosun/conf"
	"github.com/meteocima/virtual-server/config"
	"github.com/meteocima/virtual-server/connection"
)

// Result is the outcome of a command run on the remote host.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the command exited with a non-zero status.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// LocalHost is the host name used when commands run on this machine.
const LocalHost = "localhost"

// HostConf converts the remote section of the site configuration
// into a virtual-server host, and returns it with its name.
func HostConf(rc conf.RemoteConf) (string, *config.Host, error) {
	if rc.Local {
		return LocalHost, &config.Host{Type: config.HostTypeOS, Name: LocalHost}, nil
	}
	if rc.Host == "" {
		return "", nil, conf.NewConfigError("Remote.Host", "missing required key", nil)
	}

	keyFile := rc.KeyFile
	if keyFile == "" {
		home, _ := os.UserHomeDir()
		keyFile = filepath.Join(home, ".ssh", "id_rsa")
	}
	user := rc.User
	if user == "" {
		user = os.Getenv("USER")
	}
	port := rc.Port
	if port == 0 {
		port = 22
	}

	return rc.Host, &config.Host{
		Type: config.HostTypeSSH,
		Name: rc.Host,
		Host: rc.Host,
		Port: port,
		User: user,
		Key:  keyFile,
	}, nil
}

// Dial registers the host described by rc and opens
// a connection to it.
func Dial(rc conf.RemoteConf) (connection.Connection, error) {
	name, host, err := HostConf(rc)
	if err != nil {
		return nil, err
	}
	if config.Hosts == nil {
		config.Hosts = map[string]*config.Host{}
	}
	config.Hosts[name] = host
	return connection.FindHost(name)
}
