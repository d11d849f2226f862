// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package systemd reloads system services over D-Bus. It exposes the
// one operation the mount controllers need: reload a unit, restarting
// it when the reload itself fails.
package systemd

import (
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/coreos/go-systemd/v22/util"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("nfsmount.systemd")

// IsRunning returns whether or not systemd is the local init system.
func IsRunning() bool {
	return util.IsRunningSystemd()
}

// DBusAPI is the subset of the systemd D-Bus manager API used here.
type DBusAPI interface {
	ReloadUnit(name, mode string, ch chan<- string) (int, error)
	RestartUnit(name, mode string, ch chan<- string) (int, error)
	Close()
}

// DBusAPIFactory produces a connected DBusAPI.
type DBusAPIFactory = func() (DBusAPI, error)

// NewDBusAPI connects to the system bus.
var NewDBusAPI = func() (DBusAPI, error) {
	return dbus.New()
}

var newChan = func() chan string {
	return make(chan string)
}

// Reloader reloads a systemd unit, restarting it if the reload fails.
type Reloader struct {
	newDBus DBusAPIFactory
}

// NewReloader returns a Reloader speaking to the system bus.
func NewReloader() *Reloader {
	return &Reloader{newDBus: NewDBusAPI}
}

// NewReloaderWithDBus returns a Reloader using the supplied factory.
func NewReloaderWithDBus(factory DBusAPIFactory) *Reloader {
	return &Reloader{newDBus: factory}
}

// Reload asks systemd to reload the named service, restarting it when
// the reload fails. The returned error preserves the text of the
// underlying D-Bus failure so callers can classify it.
func (r *Reloader) Reload(name string) error {
	unit := unitName(name)
	if err := r.job("reload", unit); err != nil {
		logger.Warningf("reload of %q failed, attempting restart: %v", unit, err)
		if restartErr := r.job("restart", unit); restartErr != nil {
			return errors.Annotatef(restartErr, "failed to reload or restart %q", unit)
		}
	}
	return nil
}

func (r *Reloader) job(op, unit string) error {
	conn, err := r.newDBus()
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	statusCh := newChan()
	switch op {
	case "reload":
		_, err = conn.ReloadUnit(unit, "replace", statusCh)
	case "restart":
		_, err = conn.RestartUnit(unit, "replace", statusCh)
	}
	if err != nil {
		return errors.Annotatef(err, "dbus %s request failed", op)
	}

	if status := <-statusCh; status != "done" {
		return errors.Errorf("failed to %s %q (API status %q)", op, unit, status)
	}
	return nil
}

func unitName(name string) string {
	if strings.HasSuffix(name, ".service") {
		return name
	}
	return name + ".service"
}
