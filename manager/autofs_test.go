// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

package manager

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/nfsmount/endpoint"
)

type autofsSuite struct {
	testing.IsolationSuite

	manager   *Autofs
	reloads   []string
	reloadErr error
	capable   bool
}

var _ = gc.Suite(&autofsSuite{})

func (s *autofsSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.reloads = nil
	s.reloadErr = nil
	s.capable = true
	s.manager = &Autofs{
		masterDir: c.MkDir(),
		mapDir:    c.MkDir(),
		service:   autofsService,
		reload: func(service string) error {
			s.reloads = append(s.reloads, service)
			return s.reloadErr
		},
		supported: func() bool { return s.capable },
	}
}

func (s *autofsSuite) readFile(c *gc.C, path string) string {
	data, err := os.ReadFile(path)
	c.Assert(err, jc.ErrorIsNil)
	return string(data)
}

func (s *autofsSuite) TestDefaultDescriptorPaths(c *gc.C) {
	m := NewAutofs()
	c.Check(m.MasterPath("things"), gc.Equals, "/etc/auto.master.d/things.autofs")
	c.Check(m.MapPath("things"), gc.Equals, "/etc/auto.things")
}

func (s *autofsSuite) TestMountDescriptors(c *gc.C) {
	mapPath := s.manager.MapPath("things")
	tests := []struct {
		about   string
		ep      endpoint.Endpoint
		options []string
		master  string
		mapping string
	}{{
		about:   "IPv4",
		ep:      endpoint.Endpoint{Host: "192.168.1.254", Path: "/things"},
		master:  "/- " + mapPath,
		mapping: "/things 192.168.1.254:/things",
	}, {
		about:   "IPv4 with options",
		ep:      endpoint.Endpoint{Host: "192.168.1.254", Path: "/things"},
		options: []string{"some", "opts"},
		master:  "/- " + mapPath + " some,opts",
		mapping: "/things 192.168.1.254:/things",
	}, {
		about:   "IPv4 with port and options",
		ep:      endpoint.Endpoint{Host: "192.168.1.254", Path: "/things", Port: 2049},
		options: []string{"some", "opts"},
		master:  "/- " + mapPath + " some,opts,port=2049",
		mapping: "/things 192.168.1.254:/things",
	}, {
		about:   "port with no options",
		ep:      endpoint.Endpoint{Host: "192.168.1.254", Path: "/things", Port: 2049},
		master:  "/- " + mapPath + " port=2049",
		mapping: "/things 192.168.1.254:/things",
	}, {
		about:   "IPv6 with port and options",
		ep:      endpoint.Endpoint{Host: "fd42:7650:65a::dbf5:b3c:5961", Path: "/things", Port: 2049},
		options: []string{"some", "opts"},
		master:  "/- " + mapPath + " some,opts,port=2049",
		mapping: "/things [fd42:7650:65a::dbf5:b3c:5961]:/things",
	}, {
		about:   "hostname",
		ep:      endpoint.Endpoint{Host: "server.com", Path: "/things"},
		master:  "/- " + mapPath,
		mapping: "/things server.com:/things",
	}, {
		about:   "hostname with trailing dot",
		ep:      endpoint.Endpoint{Host: "server.com.", Path: "/things"},
		master:  "/- " + mapPath,
		mapping: "/things server.com.:/things",
	}}

	for i, t := range tests {
		c.Logf("test %d: %s", i, t.about)
		err := s.manager.Mount(t.ep, "/things", t.options)
		c.Assert(err, jc.ErrorIsNil)

		c.Check(s.readFile(c, s.manager.MasterPath("things")), gc.Equals, t.master)
		c.Check(s.readFile(c, mapPath), gc.Equals, t.mapping)
	}
	c.Check(s.reloads, gc.HasLen, len(tests))
	c.Check(s.reloads[0], gc.Equals, "autofs")
}

func (s *autofsSuite) TestMountReloadFailure(c *gc.C) {
	s.reloadErr = errors.New("some dbus error")

	err := s.manager.Mount(endpoint.Endpoint{Host: "192.168.1.254", Path: "/data", Port: 2049}, "/data", nil)
	c.Assert(err, jc.ErrorIs, ErrMountFailed)
	c.Assert(err, gc.ErrorMatches, `failed to mount "192.168.1.254:/data" at "/data"`)

	// The descriptors stay in place for the next reload attempt.
	c.Check(s.manager.MasterPath("data"), jc.IsNonEmptyFile)
	c.Check(s.manager.MapPath("data"), jc.IsNonEmptyFile)
}

func (s *autofsSuite) TestMountPermissionDeniedUnsupported(c *gc.C) {
	s.reloadErr = errors.New("Operation not permitted")
	s.capable = false

	err := s.manager.Mount(endpoint.Endpoint{Host: "192.168.1.254", Path: "/data"}, "/data", nil)
	c.Assert(err, jc.ErrorIs, ErrUnsupportedEnvironment)
	c.Assert(err, gc.ErrorMatches, "mounting NFS shares is not supported on LXD containers")
}

func (s *autofsSuite) TestMountPermissionDeniedCapable(c *gc.C) {
	s.reloadErr = errors.New("Operation not permitted")
	s.capable = true

	err := s.manager.Mount(endpoint.Endpoint{Host: "192.168.1.254", Path: "/data"}, "/data", nil)
	c.Assert(err, jc.ErrorIs, ErrMountFailed)
}

func (s *autofsSuite) TestMountOtherFailureInIncapableContainer(c *gc.C) {
	s.reloadErr = errors.New("some dbus error")
	s.capable = false

	err := s.manager.Mount(endpoint.Endpoint{Host: "192.168.1.254", Path: "/data"}, "/data", nil)
	c.Assert(err, jc.ErrorIs, ErrMountFailed)
}

func (s *autofsSuite) TestUnmountRemovesDescriptors(c *gc.C) {
	master := s.manager.MasterPath("data")
	mapping := s.manager.MapPath("data")
	c.Assert(os.WriteFile(master, []byte("/- "+mapping), 0644), jc.ErrorIsNil)
	c.Assert(os.WriteFile(mapping, []byte("/data 192.168.1.150:/data"), 0644), jc.ErrorIsNil)

	err := s.manager.Unmount("/data", false)
	c.Assert(err, jc.ErrorIsNil)

	c.Check(master, jc.DoesNotExist)
	c.Check(mapping, jc.DoesNotExist)
	c.Check(s.reloads, jc.DeepEquals, []string{"autofs"})
}

func (s *autofsSuite) TestUnmountMissingDescriptors(c *gc.C) {
	err := s.manager.Unmount("/data", false)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(s.reloads, jc.DeepEquals, []string{"autofs"})
}

func (s *autofsSuite) TestUnmountReloadFailure(c *gc.C) {
	s.reloadErr = errors.New("some dbus error")

	err := s.manager.Unmount("/data", false)
	c.Assert(err, jc.ErrorIs, ErrUnmountFailed)
	c.Assert(err, gc.ErrorMatches, `failed to unmount "/data"`)
}

func (s *autofsSuite) TestUnmountRemovesMountpoint(c *gc.C) {
	mountpoint := filepath.Join(c.MkDir(), "data")
	c.Assert(os.Mkdir(mountpoint, 0755), jc.ErrorIsNil)

	err := s.manager.Unmount(mountpoint, false)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(mountpoint, jc.DoesNotExist)
}
