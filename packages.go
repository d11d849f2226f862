// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package nfsmount

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/juju/packaging/v3/manager"
)

// ErrPackageOperation reports a failed install or removal of the
// packages the mount machinery needs.
const ErrPackageOperation = errors.ConstError("package operation failed")

// requiredPackages are the archive packages that provide the NFS client
// tooling and the autofs service.
var requiredPackages = []string{"nfs-common", "autofs"}

// PackageManager is the subset of the apt manager the install and
// removal operations use.
type PackageManager interface {
	Update() error
	Install(packs ...string) error
	Remove(packs ...string) error
	IsInstalled(pack string) bool
}

var newPackageManager = func() PackageManager {
	return manager.NewAptPackageManager()
}

// InstallPackages refreshes the package archive and installs the NFS
// client tooling and the autofs service.
func InstallPackages() error {
	apt := newPackageManager()
	logger.Debugf("installing packages %v", requiredPackages)
	if err := apt.Update(); err != nil {
		return fmt.Errorf("cannot update package archive: %v%w", err, errors.Hide(ErrPackageOperation))
	}
	if err := apt.Install(requiredPackages...); err != nil {
		return fmt.Errorf("cannot install packages %v: %v%w", requiredPackages, err, errors.Hide(ErrPackageOperation))
	}
	return nil
}

// RemovePackages removes the packages InstallPackages installs.
// Packages that are not installed are skipped.
func RemovePackages() error {
	apt := newPackageManager()
	for _, pack := range requiredPackages {
		if !apt.IsInstalled(pack) {
			logger.Warningf("skipping package %q that is not installed", pack)
			continue
		}
		logger.Debugf("removing package %q", pack)
		if err := apt.Remove(pack); err != nil {
			return fmt.Errorf("cannot remove package %q: %v%w", pack, err, errors.Hide(ErrPackageOperation))
		}
	}
	return nil
}
