package sysinfo

import (
	"strconv"
	"strings"
)

// Version is a parsed dotted version. Components reports how many of the
// fields were actually present in the input.
type Version struct {
	Major      uint32
	Minor      uint32
	Update     uint32
	Components int
}

// ParseVersion parses up to three dotted numeric components. Parsing stops
// at the first component that is not a plain number.
func ParseVersion(s string) Version {
	var v Version
	rest := s
	for v.Components < 3 && rest != "" {
		head := rest
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			head = rest[:i]
			rest = rest[i+1:]
		} else {
			rest = ""
		}

		n, err := strconv.ParseUint(head, 10, 32)
		if err != nil {
			break
		}

		switch v.Components {
		case 0:
			v.Major = uint32(n)
		case 1:
			v.Minor = uint32(n)
		case 2:
			v.Update = uint32(n)
		}
		v.Components++
	}
	return v
}
