// Package version provides wire format version parsing and comparison.
//
// Peers exchange the version out of band (in discovery TXT records).
// Versions are compatible when their major components match; minor
// revisions only add optional behavior.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the wire format version implemented by this library.
const Current = "1.0"

// ErrIncompatible indicates a peer version with a different major component.
var ErrIncompatible = errors.New("incompatible version")

// SpecVersion represents a parsed "major.minor" version.
type SpecVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (SpecVersion, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return SpecVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	maj, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	mnr, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return SpecVersion{Major: uint16(maj), Minor: uint16(mnr)}, nil
}

// String returns the version as "major.minor".
func (v SpecVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v SpecVersion) Compatible(other SpecVersion) bool {
	return v.Major == other.Major
}

// Check parses a peer's version string and verifies it is compatible with
// Current.
func Check(peer string) (SpecVersion, error) {
	v, err := Parse(peer)
	if err != nil {
		return SpecVersion{}, err
	}
	current, _ := Parse(Current)
	if !current.Compatible(v) {
		return v, fmt.Errorf("%w: peer %s, local %s", ErrIncompatible, v, current)
	}
	return v, nil
}
