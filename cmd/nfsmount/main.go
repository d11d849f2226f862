// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Command nfsmount is a thin operator tool over the nfsmount library.
// It mounts, unmounts and inspects the machine's NFS shares, and can
// reconcile against a desired-state declaration supplied as YAML.
package main

import (
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"gopkg.in/yaml.v3"

	"github.com/juju/nfsmount"
	"github.com/juju/nfsmount/mountinfo"
)

const usageMessage = `usage: nfsmount [flags] <command> [args]

commands:
    list                         show every NFS mount on the machine
    fetch <target>               show the mount record for a mountpoint,
                                 endpoint or share locator
    mount <locator> <mountpoint> [option ...]
                                 mount a share
    umount <mountpoint>          unmount a share
    ensure <locator>             mount a share per the --config declaration
    install                      install the NFS client packages
    remove                       remove the NFS client packages

flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := gnuflag.NewFlagSet("nfsmount", gnuflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usageMessage)
		flags.PrintDefaults()
	}
	direct := flags.Bool("direct", false, "mount directly instead of through autofs")
	force := flags.Bool("force", false, "force unmounting a stuck share")
	debug := flags.Bool("debug", false, "enable debug logging")
	configPath := flags.String("config", "", "path to a desired-state declaration (YAML)")
	if err := flags.Parse(true, args); err != nil {
		return err
	}
	if *debug {
		if err := loggo.ConfigureLoggers("nfsmount=DEBUG"); err != nil {
			return errors.Trace(err)
		}
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errors.New("missing command")
	}

	var mounter *nfsmount.Mounter
	if *direct {
		mounter = nfsmount.NewDirect()
	} else {
		mounter = nfsmount.New()
	}

	command, rest := flags.Arg(0), flags.Args()[1:]
	switch command {
	case "list":
		return listMounts(mounter)
	case "fetch":
		if len(rest) != 1 {
			return errors.New("fetch needs a mountpoint, endpoint or share locator")
		}
		return fetchMount(mounter, rest[0])
	case "mount":
		if len(rest) < 2 {
			return errors.New("mount needs a share locator and a mountpoint")
		}
		return errors.Trace(mounter.Mount(rest[0], rest[1], rest[2:]))
	case "umount":
		if len(rest) != 1 {
			return errors.New("umount needs a mountpoint")
		}
		return errors.Trace(mounter.Unmount(rest[0], *force))
	case "ensure":
		if len(rest) != 1 {
			return errors.New("ensure needs a share locator")
		}
		if *configPath == "" {
			return errors.New("ensure needs a --config declaration")
		}
		return ensureMount(mounter, rest[0], *configPath)
	case "install":
		return errors.Trace(nfsmount.InstallPackages())
	case "remove":
		return errors.Trace(nfsmount.RemovePackages())
	}
	return errors.Errorf("unknown command %q", command)
}

func listMounts(mounter *nfsmount.Mounter) error {
	mounts, err := mounter.Mounts()
	if err != nil {
		return errors.Trace(err)
	}
	for _, info := range mounts {
		printMount(info)
	}
	return nil
}

func fetchMount(mounter *nfsmount.Mounter, target string) error {
	info, err := mounter.Fetch(target)
	if err != nil {
		return errors.Trace(err)
	}
	printMount(info)
	return nil
}

func printMount(info mountinfo.MountInfo) {
	fmt.Printf("%s %s %s %s\n", info.Endpoint, info.Mountpoint, info.Fstype, info.Options)
}

func ensureMount(mounter *nfsmount.Mounter, locator, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Trace(err)
	}
	var config nfsmount.ShareConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return errors.Annotatef(err, "cannot parse %q", configPath)
	}
	reconciler := nfsmount.NewReconciler(mounter)
	if err := reconciler.Configure(config); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(reconciler.Ensure(locator))
}
