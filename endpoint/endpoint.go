// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3, see LICENCE file for details.

// Package endpoint parses NFS share locators into mount-ready endpoints.
//
// A locator arrives in one of two forms: a URL of the shape
// nfs://host[:port]/path, or a raw host:path string that is already in
// the form understood by the system mount machinery. The two are told
// apart with a pattern test, never by attempting a parse and recovering.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// ErrInvalidEndpoint is returned when a share locator does not match
// the accepted grammar.
const ErrInvalidEndpoint = errors.ConstError("invalid NFS endpoint")

// hostnameRegexp constrains non-literal hosts to the character set of a
// URL authority. A trailing dot (absolute DNS name) is permitted.
var hostnameRegexp = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.-]{0,252}$`)

// Endpoint is a validated NFS share endpoint. Host carries no brackets
// even when it is a literal IPv6 address; Port is zero when the locator
// did not specify one.
type Endpoint struct {
	Host string
	Path string
	Port int
}

// String returns the endpoint in the host:path form consumed by the
// mount machinery, restoring brackets around IPv6 hosts.
func (e Endpoint) String() string {
	if strings.Contains(e.Host, ":") {
		return "[" + e.Host + "]:" + e.Path
	}
	return e.Host + ":" + e.Path
}

// IsURL reports whether the locator is in URL form rather than raw
// host:path form.
func IsURL(locator string) bool {
	return strings.Contains(locator, "://")
}

// Parse validates a share locator and returns its endpoint. URL-form
// locators must use the nfs scheme, name a host and an absolute share
// path, and carry no query string, fragment or user info. Raw locators
// must already be in host:path form.
func Parse(locator string) (Endpoint, error) {
	if IsURL(locator) {
		return parseURL(locator)
	}
	return parseRaw(locator)
}

func parseURL(locator string) (Endpoint, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return Endpoint{}, invalidf("cannot parse share locator %q: %v", locator, err)
	}
	if u.Scheme != "nfs" {
		return Endpoint{}, invalidf("share locator %q does not use the nfs scheme", locator)
	}
	if u.RawQuery != "" || u.ForceQuery {
		return Endpoint{}, invalidf("share locator %q contains a query string", locator)
	}
	if u.Fragment != "" {
		return Endpoint{}, invalidf("share locator %q contains a fragment", locator)
	}
	if u.User != nil {
		return Endpoint{}, invalidf("share locator %q contains user info", locator)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, invalidf("share locator %q has an empty host", locator)
	}
	// net/url happily splits an unbracketed IPv6 literal into host and
	// port at its last group; the grammar requires brackets.
	if strings.Contains(host, ":") && !strings.HasPrefix(u.Host, "[") {
		return Endpoint{}, invalidf("share locator %q has an unbracketed IPv6 host", locator)
	}
	if err := validateHost(host); err != nil {
		return Endpoint{}, errors.Trace(err)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 0 || port > 65535 {
			return Endpoint{}, invalidf("share locator %q has an invalid port %q", locator, p)
		}
	}

	if u.Path == "" {
		return Endpoint{}, invalidf("share locator %q has no share path", locator)
	}
	return Endpoint{Host: host, Path: u.Path, Port: port}, nil
}

func parseRaw(locator string) (Endpoint, error) {
	var host, path string
	if strings.HasPrefix(locator, "[") {
		end := strings.Index(locator, "]")
		if end < 0 {
			return Endpoint{}, invalidf("endpoint %q has an unterminated IPv6 literal", locator)
		}
		host = locator[1:end]
		rest := locator[end+1:]
		if !strings.HasPrefix(rest, ":") {
			return Endpoint{}, invalidf("endpoint %q is not in host:path form", locator)
		}
		path = rest[1:]
	} else {
		i := strings.Index(locator, ":")
		if i < 0 {
			return Endpoint{}, invalidf("endpoint %q is not in host:path form", locator)
		}
		host, path = locator[:i], locator[i+1:]
	}
	if host == "" {
		return Endpoint{}, invalidf("endpoint %q has an empty host", locator)
	}
	if !strings.HasPrefix(path, "/") {
		return Endpoint{}, invalidf("endpoint %q does not name an absolute share path", locator)
	}
	if err := validateHost(host); err != nil {
		return Endpoint{}, errors.Trace(err)
	}
	return Endpoint{Host: host, Path: path}, nil
}

func validateHost(host string) error {
	if strings.Contains(host, ":") {
		if ip := net.ParseIP(host); ip == nil {
			return invalidf("host %q is not a valid IPv6 literal", host)
		}
		return nil
	}
	if !hostnameRegexp.MatchString(host) {
		return invalidf("host %q is not a valid hostname or address", host)
	}
	return nil
}

func invalidf(format string, args ...interface{}) error {
	args = append(args, errors.Hide(ErrInvalidEndpoint))
	return fmt.Errorf(format+"%w", args...)
}
