// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package manager

import (
	"strings"

	"github.com/juju/utils/v4/exec"
)

// detectVirt is swapped out in tests.
var detectVirt = func() (string, error) {
	resp, err := exec.RunCommands(exec.RunParams{Commands: "systemd-detect-virt"})
	if err != nil {
		return "", err
	}
	return string(resp.Stdout), nil
}

// Supported reports whether this machine can mount NFS shares. The
// probe fails open: if the virtualization context cannot be determined,
// the capability is assumed present so a broken probe never blocks a
// legitimate mount.
func Supported() bool {
	out, err := detectVirt()
	if err != nil {
		logger.Warningf("could not detect virtualized environment: %v", err)
		return true
	}
	// NFS shares cannot be mounted inside LXD containers.
	return !strings.Contains(out, "lxc")
}
