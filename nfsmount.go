// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package nfsmount keeps a machine's NFS mount state aligned with a
// desired-state declaration. The live mount table is the single source
// of truth: every query re-reads it, and mount and unmount operations
// are idempotent against it.
package nfsmount

import (
	"os"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/nfsmount/endpoint"
	"github.com/juju/nfsmount/manager"
	"github.com/juju/nfsmount/mountinfo"
)

var logger = loggo.GetLogger("nfsmount")

const (
	// nfsFstypePrefix matches both nfs and nfs4 mount records.
	nfsFstypePrefix = "nfs"

	// autofsFstypePrefix matches the activation points autofs manages.
	autofsFstypePrefix = "autofs"
)

// MountTable reads the live mount table.
type MountTable interface {
	ListMounts(fstypePrefix string) ([]mountinfo.MountInfo, error)
	Find(target, fstypePrefix string) (mountinfo.MountInfo, error)
}

type liveTable struct{}

func (liveTable) ListMounts(fstypePrefix string) ([]mountinfo.MountInfo, error) {
	return mountinfo.ListMounts(fstypePrefix)
}

func (liveTable) Find(target, fstypePrefix string) (mountinfo.MountInfo, error) {
	return mountinfo.Find(target, fstypePrefix)
}

// Mounter exposes the mount reconciliation operations. Each Mounter
// drives exactly one mount controller; operations against the same
// mountpoint must be serialised by the caller.
type Mounter struct {
	manager manager.Manager
	table   MountTable
}

// New returns a Mounter using the autofs controller, which registers
// lazily-activated mounts with the autofs service.
func New() *Mounter {
	return NewWithManager(manager.NewAutofs())
}

// NewDirect returns a Mounter that invokes the mount commands directly,
// with no autofs indirection.
func NewDirect() *Mounter {
	return NewWithManager(manager.NewDirect())
}

// NewWithManager returns a Mounter driving the supplied controller.
func NewWithManager(m manager.Manager) *Mounter {
	return &Mounter{manager: m, table: liveTable{}}
}

// Fetch returns the live mount record for target, which may be a
// mountpoint, a raw host:path endpoint, or a URL-form share locator.
// It returns a NotFound error when the target is not mounted.
func (m *Mounter) Fetch(target string) (mountinfo.MountInfo, error) {
	if endpoint.IsURL(target) {
		ep, err := endpoint.Parse(target)
		if err != nil {
			return mountinfo.MountInfo{}, errors.Trace(err)
		}
		target = ep.String()
	}

	m.triggerAutofs()
	info, err := m.table.Find(target, nfsFstypePrefix)
	if err != nil {
		return mountinfo.MountInfo{}, errors.Trace(err)
	}
	return info, nil
}

// Mounts returns every NFS mount on the machine.
func (m *Mounter) Mounts() ([]mountinfo.MountInfo, error) {
	m.triggerAutofs()
	mounts, err := m.table.ListMounts(nfsFstypePrefix)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return mounts, nil
}

// Mounted reports whether the target endpoint or mountpoint is mounted.
func (m *Mounter) Mounted(target string) (bool, error) {
	_, err := m.Fetch(target)
	if errors.Is(err, errors.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Trace(err)
	}
	return true, nil
}

// Mount attaches the share named by locator at mountpoint. Mounting a
// target that is already mounted is a no-op. An invalid locator rejects
// the attempt before any mount state is touched.
func (m *Mounter) Mount(locator, mountpoint string, options []string) error {
	ep, err := endpoint.Parse(locator)
	if err != nil {
		return errors.Trace(err)
	}

	mounted, err := m.Mounted(locator)
	if err != nil {
		return errors.Trace(err)
	}
	if mounted {
		logger.Warningf("endpoint %q already mounted", locator)
		return nil
	}

	return errors.Trace(m.manager.Mount(ep, mountpoint, options))
}

// Unmount detaches the share mounted at mountpoint.
func (m *Mounter) Unmount(mountpoint string, force bool) error {
	return errors.Trace(m.manager.Unmount(mountpoint, force))
}

// triggerAutofs forces every registered lazy mountpoint to activate, so
// that autofs-managed NFS mounts appear in the live table before it is
// read. A failed touch may simply indicate an unrelated already-active
// mount, so failures are logged and otherwise ignored.
func (m *Mounter) triggerAutofs() {
	mounts, err := m.table.ListMounts(autofsFstypePrefix)
	if err != nil {
		logger.Warningf("could not list autofs mounts: %v", err)
		return
	}

	points := set.NewStrings()
	for _, info := range mounts {
		points.Add(info.Mountpoint)
	}
	for _, mountpoint := range points.SortedValues() {
		logger.Debugf("triggering automount for %q", mountpoint)
		if _, err := os.ReadDir(mountpoint); err != nil {
			logger.Warningf("could not trigger automount for %q: %v", mountpoint, err)
		}
	}
}
