package watcher

import (
	"fmt"
	"os"
	"os/exec"
)

// Launch starts command in a new session with the watcher's environment and
// standard streams. The child is released so it outlives the watcher.
func Launch(command []string) (int, error) {
	if len(command) == 0 {
		return 0, ErrNoCommand
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = os.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = detached()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", command[0], err)
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release %d: %w", pid, err)
	}
	return pid, nil
}
