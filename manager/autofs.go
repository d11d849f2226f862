// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"

	"github.com/juju/nfsmount/endpoint"
	"github.com/juju/nfsmount/systemd"
)

const (
	autofsService   = "autofs"
	autofsMasterDir = "/etc/auto.master.d"
	autofsMapDir    = "/etc"

	// permissionDenied is the signature a reload failure carries when
	// the kernel refuses the mount inside an incapable container.
	permissionDenied = "Operation not permitted"
)

// Autofs registers mounts with the autofs service instead of mounting
// directly. Activation is owned by the long-running service and happens
// on first access, so an endpoint that is unreachable at registration
// time is retried on each touch. Descriptor files written before a
// failed reload are left in place; they are inert until a reload
// succeeds.
type Autofs struct {
	masterDir string
	mapDir    string
	service   string

	reload    func(service string) error
	supported func() bool
}

// NewAutofs returns the lazy-activation mount controller.
func NewAutofs() *Autofs {
	return &Autofs{
		masterDir: autofsMasterDir,
		mapDir:    autofsMapDir,
		service:   autofsService,
		reload:    systemd.NewReloader().Reload,
		supported: Supported,
	}
}

// MasterPath returns the master-map registration file for a mountpoint
// identity.
func (m *Autofs) MasterPath(id string) string {
	return filepath.Join(m.masterDir, id+".autofs")
}

// MapPath returns the map file for a mountpoint identity.
func (m *Autofs) MapPath(id string) string {
	return filepath.Join(m.mapDir, "auto."+id)
}

// Mount implements Manager. It writes the master registration and map
// descriptors for the mountpoint and reloads the autofs service.
func (m *Autofs) Mount(ep endpoint.Endpoint, mountpoint string, options []string) error {
	opts := append([]string{}, options...)
	if ep.Port != 0 {
		opts = append(opts, fmt.Sprintf("port=%d", ep.Port))
	}

	id := ConfigID(mountpoint)
	master := "/- " + m.MapPath(id)
	if len(opts) > 0 {
		master += " " + strings.Join(opts, ",")
	}

	logger.Debugf("registering NFS share %q at %q with options %v", ep, mountpoint, opts)
	if err := os.WriteFile(m.MasterPath(id), []byte(master), 0644); err != nil {
		return errors.Annotatef(err, "cannot write master registration for %q", mountpoint)
	}
	if err := os.WriteFile(m.MapPath(id), []byte(mountpoint+" "+ep.String()), 0644); err != nil {
		return errors.Annotatef(err, "cannot write map file for %q", mountpoint)
	}

	if err := m.reload(m.service); err != nil {
		logger.Errorf("failed to mount %q at %q: %v", ep, mountpoint, err)
		return m.classifyMountFailure(err, ep, mountpoint)
	}
	return nil
}

// Unmount implements Manager. Missing descriptor files are not an
// error; only the service reload can fail the operation. The force flag
// has no effect for autofs-managed mounts.
func (m *Autofs) Unmount(mountpoint string, force bool) error {
	if force {
		logger.Debugf("force has no effect for autofs-managed mounts")
	}

	logger.Debugf("unmounting NFS share at %q", mountpoint)
	id := ConfigID(mountpoint)
	for _, file := range []string{m.MapPath(id), m.MasterPath(id)} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return errors.Annotatef(err, "cannot remove %q", file)
		}
	}

	if err := m.reload(m.service); err != nil {
		logger.Errorf("failed to unmount %q: %v", mountpoint, err)
		return fmt.Errorf("failed to unmount %q%w", mountpoint, errors.Hide(ErrUnmountFailed))
	}

	removeMountpoint(mountpoint)
	return nil
}

// classifyMountFailure prefers the actionable unsupported-environment
// error over the generic one when a permission denial coincides with an
// NFS-incapable container.
func (m *Autofs) classifyMountFailure(err error, ep endpoint.Endpoint, mountpoint string) error {
	if strings.Contains(err.Error(), permissionDenied) && !m.supported() {
		return fmt.Errorf("mounting NFS shares is not supported on LXD containers%w",
			errors.Hide(ErrUnsupportedEnvironment))
	}
	return fmt.Errorf("failed to mount %q at %q%w", ep, mountpoint, errors.Hide(ErrMountFailed))
}

// removeMountpoint is best-effort cleanup; a mountpoint that cannot be
// removed is logged and otherwise ignored.
func removeMountpoint(mountpoint string) {
	if err := os.RemoveAll(mountpoint); err != nil {
		logger.Warningf("could not remove mountpoint %q: %v", mountpoint, err)
	}
}
