// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package manager

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/utils/v4"
	"github.com/juju/utils/v4/exec"

	"github.com/juju/nfsmount/endpoint"
)

// unmountWait bounds how long an unmount may take before it is treated
// as timed out rather than failed.
const unmountWait = 120 * time.Second

// runFunc executes a shell command, killing it when cancel is closed.
type runFunc func(params exec.RunParams, cancel <-chan struct{}) (*exec.ExecResponse, error)

func runCommand(params exec.RunParams, cancel <-chan struct{}) (*exec.ExecResponse, error) {
	if err := params.Run(); err != nil {
		return nil, errors.Trace(err)
	}
	return params.WaitWithCancel(cancel)
}

// Direct mounts and unmounts NFS shares by invoking the mount commands
// itself, with no autofs indirection. Mounts are immediate: an endpoint
// that is unreachable fails the operation instead of being retried by a
// background service.
type Direct struct {
	clock     clock.Clock
	run       runFunc
	wait      time.Duration
	supported func() bool
}

// NewDirect returns the direct mount controller.
func NewDirect() *Direct {
	return &Direct{
		clock:     clock.WallClock,
		run:       runCommand,
		wait:      unmountWait,
		supported: Supported,
	}
}

// Mount implements Manager. The mountpoint directory is created if
// absent; a pre-existing directory is not an error.
func (m *Direct) Mount(ep endpoint.Endpoint, mountpoint string, options []string) error {
	if err := os.Mkdir(mountpoint, 0755); err != nil {
		if !os.IsExist(err) {
			return errors.Annotatef(err, "cannot create mountpoint %q", mountpoint)
		}
		logger.Warningf("mountpoint %q already exists", mountpoint)
	} else {
		logger.Debugf("created mountpoint %q", mountpoint)
	}

	opts := append([]string{}, options...)
	if ep.Port != 0 {
		opts = append(opts, fmt.Sprintf("port=%d", ep.Port))
	}

	cmd := "mount -t nfs"
	if len(opts) > 0 {
		cmd += " -o " + utils.ShQuote(strings.Join(opts, ","))
	}
	cmd += " " + utils.ShQuote(ep.String()) + " " + utils.ShQuote(mountpoint)

	logger.Debugf("mounting NFS share %q at %q with options %v", ep, mountpoint, opts)
	resp, err := m.run(exec.RunParams{Commands: cmd, Clock: m.clock}, nil)
	if err != nil {
		return m.classifyMountFailure(err.Error(), ep, mountpoint)
	}
	if resp.Code != 0 {
		return m.classifyMountFailure(string(resp.Stderr), ep, mountpoint)
	}
	return nil
}

// Unmount implements Manager. The unmount command is given a bounded
// wait; exceeding it is reported as a timeout, distinct from a generic
// failure. On success the mountpoint directory is removed best-effort.
func (m *Direct) Unmount(mountpoint string, force bool) error {
	cmd := "umount"
	if force {
		cmd += " -f"
	}
	cmd += " " + utils.ShQuote(mountpoint)

	cancel := make(chan struct{})
	timer := m.clock.AfterFunc(m.wait, func() { close(cancel) })
	defer timer.Stop()

	logger.Debugf("unmounting NFS share at %q", mountpoint)
	resp, err := m.run(exec.RunParams{Commands: cmd, Clock: m.clock}, cancel)
	if errors.Is(err, exec.ErrCancelled) {
		return fmt.Errorf("unmount of %q did not complete within %v%w",
			mountpoint, m.wait, errors.Hide(ErrUnmountTimeout))
	}
	if err != nil {
		logger.Errorf("failed to unmount %q: %v", mountpoint, err)
		return fmt.Errorf("failed to unmount %q%w", mountpoint, errors.Hide(ErrUnmountFailed))
	}
	if resp.Code != 0 {
		logger.Errorf("failed to unmount %q: %s", mountpoint, resp.Stderr)
		return fmt.Errorf("failed to unmount %q%w", mountpoint, errors.Hide(ErrUnmountFailed))
	}

	removeMountpoint(mountpoint)
	return nil
}

func (m *Direct) classifyMountFailure(detail string, ep endpoint.Endpoint, mountpoint string) error {
	logger.Errorf("failed to mount %q at %q: %s", ep, mountpoint, detail)
	if strings.Contains(detail, permissionDenied) && !m.supported() {
		return fmt.Errorf("mounting NFS shares is not supported on LXD containers%w",
			errors.Hide(ErrUnsupportedEnvironment))
	}
	return fmt.Errorf("failed to mount %q at %q%w", ep, mountpoint, errors.Hide(ErrMountFailed))
}
