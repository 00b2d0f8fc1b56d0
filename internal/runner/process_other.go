//go:build !unix

package runner

import (
	"os/exec"
	"time"
)

func configureProcess(cmd *exec.Cmd, grace time.Duration) {
	cmd.WaitDelay = grace
}

func sweepProcessGroup(*exec.Cmd) {}

func signalStatus(*exec.ExitError) (int, string, bool) {
	return 0, "", false
}
