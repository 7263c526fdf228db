package commands

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/jesseduffield/kill"
	"github.com/jesseduffield/lazygpg/pkg/config"
	"github.com/mgutz/str"
	"github.com/sirupsen/logrus"
)

// OSCommand holds all the os commands
type OSCommand struct {
	Log      *logrus.Entry
	Config   *config.AppConfig
	command  func(string, ...string) *exec.Cmd
	lookPath func(string) (string, error)
	getenv   func(string) string
}

// NewOSCommand os command runner
func NewOSCommand(log *logrus.Entry, config *config.AppConfig) *OSCommand {
	return &OSCommand{
		Log:      log,
		Config:   config,
		command:  exec.Command,
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
	}
}

// SetCommand sets the command function used by the struct.
// To be used for testing only
func (c *OSCommand) SetCommand(cmd func(string, ...string) *exec.Cmd) {
	c.command = cmd
}

// SetLookPath sets the function used to find executables.
// To be used for testing only
func (c *OSCommand) SetLookPath(lookPath func(string) (string, error)) {
	c.lookPath = lookPath
}

// SetGetenv sets the function used to read environment variables.
// To be used for testing only
func (c *OSCommand) SetGetenv(getenv func(string) string) {
	c.getenv = getenv
}

// Getenv reads an environment variable
func (c *OSCommand) Getenv(key string) string {
	return c.getenv(key)
}

// LookPath finds an executable, searching PATH when the name has no slash in it
func (c *OSCommand) LookPath(name string) (string, error) {
	path, err := c.lookPath(name)
	if err != nil {
		return "", WrapError(err)
	}
	return path, nil
}

func (c *OSCommand) NewCmd(cmdName string, commandArgs ...string) *exec.Cmd {
	cmd := c.command(cmdName, commandArgs...)
	cmd.Env = os.Environ()
	return cmd
}

// SplitArgs splits a string of arguments the way a shell would, honouring quotes
func (c *OSCommand) SplitArgs(args string) []string {
	if args == "" {
		return nil
	}
	return str.ToArgv(args)
}

// CreateTempFile writes content to a new temp file and returns the file's name
func (c *OSCommand) CreateTempFile(filename string, content []byte) (string, error) {
	tmpfile, err := os.CreateTemp("", filename)
	if err != nil {
		c.Log.Error(err)
		return "", WrapError(err)
	}

	if _, err := tmpfile.Write(content); err != nil {
		c.Log.Error(err)
		tmpfile.Close()
		_ = os.Remove(tmpfile.Name())
		return "", WrapError(err)
	}
	if err := tmpfile.Close(); err != nil {
		c.Log.Error(err)
		return "", WrapError(err)
	}

	return tmpfile.Name(), nil
}

// Remove removes a file or directory at the specified path
func (c *OSCommand) Remove(filename string) error {
	err := os.RemoveAll(filename)
	return WrapError(err)
}

// FileExists checks whether a file exists at the specified path
func (c *OSCommand) FileExists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Kill kills a process. kill.Kill only signals a whole process group for commands
// started with Setpgid, and PrepareForSession sets Setsid instead, so this signals
// gpg itself.
func (c *OSCommand) Kill(cmd *exec.Cmd) error {
	return kill.Kill(cmd)
}

// PrepareForSession puts the command in a session of its own, so that it has
// no controlling terminal. gpg will then never try to ask for a passphrase on
// /dev/tty behind our back.
func (c *OSCommand) PrepareForSession(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
