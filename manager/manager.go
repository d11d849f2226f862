// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package manager drives NFS mount and unmount operations against the
// OS mount machinery. Two controllers implement the same contract: the
// autofs controller registers lazily-activated mounts with the autofs
// service, and the direct controller invokes the mount commands itself.
// A consumer uses exactly one of them.
package manager

import (
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/nfsmount/endpoint"
)

var logger = loggo.GetLogger("nfsmount.manager")

const (
	// ErrMountFailed is returned when the OS mount machinery or the
	// autofs service reload fails to establish a mount.
	ErrMountFailed = errors.ConstError("mount failed")

	// ErrUnsupportedEnvironment is returned instead of ErrMountFailed
	// when the failure is a permission denial inside a container that
	// cannot mount NFS shares. It is strictly more actionable than the
	// generic failure and is preferred whenever both conditions hold.
	ErrUnsupportedEnvironment = errors.ConstError("mounting NFS shares is not supported in this environment")

	// ErrUnmountFailed is returned when tearing down a mount fails.
	ErrUnmountFailed = errors.ConstError("unmount failed")

	// ErrUnmountTimeout is returned when an unmount does not complete
	// within its bounded wait. Distinct from ErrUnmountFailed: the
	// target may still be busy rather than broken.
	ErrUnmountTimeout = errors.ConstError("unmount timed out")
)

// Manager establishes and tears down NFS mounts. Implementations are
// not safe for concurrent use against the same mountpoint; callers own
// that serialisation.
type Manager interface {
	// Mount attaches the share endpoint at mountpoint with the given
	// mount options.
	Mount(ep endpoint.Endpoint, mountpoint string, options []string) error

	// Unmount detaches the share mounted at mountpoint. The force flag
	// requests a forced unmount where the controller supports one.
	Unmount(mountpoint string, force bool) error
}
