// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package mountinfo reads the kernel-reported mount table. The table is
// re-read in full on every query; it is the single source of truth for
// mount state and is never shadowed by a cache.
package mountinfo

import (
	"bufio"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("nfsmount.mountinfo")

// procMounts is the live mount table. See `man fstab` for the field
// descriptions.
var procMounts = "/proc/mounts"

// MountInfo is a single record of the live mount table. Values are
// only ever constructed from a successfully parsed table line.
type MountInfo struct {
	Endpoint   string
	Mountpoint string
	Fstype     string
	Options    string
	Freq       string
	Passno     string
}

// ListMounts returns every record of the live mount table whose
// filesystem type starts with fstypePrefix. Prefix matching lets one
// query cover a type family, e.g. "nfs" matches both nfs and nfs4.
func ListMounts(fstypePrefix string) ([]MountInfo, error) {
	f, err := os.Open(procMounts)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot read mount table")
	}
	defer func() { _ = f.Close() }()

	var mounts []MountInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		info, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if !strings.HasPrefix(info.Fstype, fstypePrefix) {
			continue
		}
		mounts = append(mounts, info)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Annotatef(err, "cannot read mount table")
	}
	return mounts, nil
}

// Find returns the first record with the given filesystem type prefix
// whose mountpoint or endpoint equals target. It returns a NotFound
// error when no record matches.
func Find(target, fstypePrefix string) (MountInfo, error) {
	mounts, err := ListMounts(fstypePrefix)
	if err != nil {
		return MountInfo{}, errors.Trace(err)
	}
	for _, info := range mounts {
		if info.Mountpoint == target || info.Endpoint == target {
			return info, nil
		}
	}
	return MountInfo{}, errors.NotFoundf("mount %q", target)
}

// parseLine parses one table line of the standard form
// <endpoint> <mountpoint> <fstype> <options> <freq> <passno>.
func parseLine(line string) (MountInfo, bool) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		if len(fields) > 0 {
			logger.Tracef("skipping malformed mount table line %q", line)
		}
		return MountInfo{}, false
	}
	return MountInfo{
		Endpoint:   fields[0],
		Mountpoint: fields[1],
		Fstype:     fields[2],
		Options:    fields[3],
		Freq:       fields[4],
		Passno:     fields[5],
	}, true
}
