// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package nfsmount

import (
	"fmt"
	"path/filepath"

	"github.com/juju/errors"
)

const (
	// ErrNotConfigured reports a mount or unmount attempt made before
	// any desired state has been declared.
	ErrNotConfigured = errors.ConstError("no mountpoint configured")

	// ErrAlreadyConfigured reports an attempt to declare desired state
	// a second time.
	ErrAlreadyConfigured = errors.ConstError("mount already configured")
)

// ShareConfig declares the desired state for the machine's NFS mount.
type ShareConfig struct {
	// Mountpoint is the absolute path the share attaches at.
	Mountpoint string `yaml:"mountpoint"`

	// Size is the expected share size in GB. It is advisory only and
	// has no effect on the mount.
	Size int `yaml:"size,omitempty"`

	// NoExec mounts the share with execution of binaries disabled.
	NoExec bool `yaml:"noexec,omitempty"`

	// NoSuid mounts the share with set-user-ID bits ignored.
	NoSuid bool `yaml:"nosuid,omitempty"`

	// NoDev mounts the share with device special files disabled.
	NoDev bool `yaml:"nodev,omitempty"`

	// ReadOnly mounts the share read-only.
	ReadOnly bool `yaml:"read-only,omitempty"`
}

// Validate returns an error if the config cannot name a usable mount.
func (c ShareConfig) Validate() error {
	if c.Mountpoint == "" {
		return errors.NotValidf("empty mountpoint")
	}
	if !filepath.IsAbs(c.Mountpoint) {
		return errors.NotValidf("relative mountpoint %q", c.Mountpoint)
	}
	return nil
}

// MountOptions returns the mount option tokens the config calls for.
// Every boolean is rendered so that the written state is explicit about
// the permissive defaults too.
func (c ShareConfig) MountOptions() []string {
	options := make([]string, 0, 4)
	if c.NoExec {
		options = append(options, "noexec")
	} else {
		options = append(options, "exec")
	}
	if c.NoSuid {
		options = append(options, "nosuid")
	} else {
		options = append(options, "suid")
	}
	if c.NoDev {
		options = append(options, "nodev")
	} else {
		options = append(options, "dev")
	}
	if c.ReadOnly {
		options = append(options, "ro")
	} else {
		options = append(options, "rw")
	}
	return options
}

// Reconciler aligns the machine's mount state with a single declared
// ShareConfig.
type Reconciler struct {
	mounter *Mounter
	config  *ShareConfig
}

// NewReconciler returns a Reconciler driving the supplied Mounter.
// No desired state is configured yet.
func NewReconciler(m *Mounter) *Reconciler {
	return &Reconciler{mounter: m}
}

// Configure declares the desired state. The declaration can be made at
// most once per Reconciler; changing a live mount's parameters means
// tearing it down and configuring afresh, never merging in place.
func (r *Reconciler) Configure(config ShareConfig) error {
	if r.config != nil {
		return fmt.Errorf("mountpoint %q already configured%w", r.config.Mountpoint, errors.Hide(ErrAlreadyConfigured))
	}
	if err := config.Validate(); err != nil {
		return errors.Trace(err)
	}
	if config.Size != 0 {
		logger.Debugf("expected share size %dGB is advisory only", config.Size)
	}
	r.config = &config
	return nil
}

// Configured reports whether desired state has been declared.
func (r *Reconciler) Configured() bool {
	return r.config != nil
}

// Ensure mounts the share named by locator at the configured mountpoint
// with the configured options. A share that is already mounted is left
// alone. Failures are reported once; callers decide whether to retry.
func (r *Reconciler) Ensure(locator string) error {
	if r.config == nil {
		return fmt.Errorf("cannot mount %q%w", locator, errors.Hide(ErrNotConfigured))
	}
	mounted, err := r.mounter.Mounted(locator)
	if err != nil {
		return errors.Trace(err)
	}
	if mounted {
		logger.Debugf("endpoint %q already mounted at %q", locator, r.config.Mountpoint)
		return nil
	}
	return errors.Trace(r.mounter.Mount(locator, r.config.Mountpoint, r.config.MountOptions()))
}

// Teardown unmounts the configured mountpoint if it is mounted.
func (r *Reconciler) Teardown(force bool) error {
	if r.config == nil {
		return fmt.Errorf("cannot unmount%w", errors.Hide(ErrNotConfigured))
	}
	mounted, err := r.mounter.Mounted(r.config.Mountpoint)
	if err != nil {
		return errors.Trace(err)
	}
	if !mounted {
		logger.Warningf("mountpoint %q is not mounted", r.config.Mountpoint)
		return nil
	}
	return errors.Trace(r.mounter.Unmount(r.config.Mountpoint, force))
}
