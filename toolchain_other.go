//go:build !unix

package confprobe

import "os/exec"

// isolateProcess is a no-op where process groups are unavailable;
// cancellation falls back to exec.CommandContext's default kill.
func isolateProcess(_ *exec.Cmd) {}
