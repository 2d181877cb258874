//go:build !unix

package reminder

import "os/exec"

func configureDetached(cmd *exec.Cmd) {}
