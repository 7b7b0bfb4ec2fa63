//go:build !unix

package procexec

import "os/exec"

func configureProcessGroup(*exec.Cmd) {}
