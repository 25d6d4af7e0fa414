package adapters

import (
	"strings"
)

// Separator joins the name and bus/address segments of an adapter
// identifier as reported by libsensors, e.g. "k10temp-pci-00c3".
const Separator = "-"

// Canonicalize strips trailing address-shaped segments from an adapter
// identifier and returns a stable group prefix. The bus address encoded in
// the identifier is stable per boot but not across reboots or hardware
// revisions, so matching on the prefix groups semantically identical
// adapters regardless of enumeration order.
//
// A result with a trailing separator is a prefix-match token; an identifier
// without any separator is returned unchanged.
func Canonicalize(id string) string {
	segments := strings.Split(id, Separator)

	for len(segments) > 1 {
		last := segments[len(segments)-1]
		if !isAddressSegment(last) {
			break
		}
		segments = segments[:len(segments)-1]
	}

	if len(segments) == 1 {
		return segments[0]
	}
	return strings.Join(segments, Separator) + Separator
}

// isAddressSegment reports whether the segment looks like a bus address:
// empty, purely numeric, or a short run of hex digits. Long alphabetic
// segments (sub-feature names) are kept.
func isAddressSegment(segment string) bool {
	if len(segment) <= 0 {
		return true
	}
	if isNumeric(segment) {
		return true
	}
	return len(segment) <= 4 && isHex(segment)
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isHexLetter := (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isDigit && !isHexLetter {
			return false
		}
	}
	return true
}
