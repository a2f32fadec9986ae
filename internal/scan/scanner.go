// Package scan implements a lightweight signature-based malware check for
// uploaded payloads. It flags byte streams that open with executable,
// document or archive magic numbers, and SVG payloads embedding script.
package scan

import (
	"bytes"
	"fmt"
	"strings"
)

var executableSignatures = map[string][]byte{
	"windows executable": {0x4D, 0x5A},
	"elf executable":     {0x7F, 0x45, 0x4C, 0x46},
	"pdf document":       {0x25, 0x50, 0x44, 0x46},
}

var archiveSignatures = map[string][]byte{
	"zip archive":  {0x50, 0x4B, 0x03, 0x04},
	"gzip archive": {0x1F, 0x8B, 0x08},
}

var svgScriptMarkers = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
}

// Scanner checks raw upload bytes for known-hostile signatures.
type Scanner struct{}

// New constructs a Scanner.
func New() *Scanner {
	return &Scanner{}
}

// Scan returns nil for a clean payload and a descriptive error when a
// hostile signature is found.
func (s *Scanner) Scan(data []byte) error {
	for name, sig := range executableSignatures {
		if bytes.HasPrefix(data, sig) {
			return fmt.Errorf("scan: payload carries %s signature", name)
		}
	}
	for name, sig := range archiveSignatures {
		if bytes.HasPrefix(data, sig) {
			return fmt.Errorf("scan: payload carries %s signature", name)
		}
	}
	if err := scanSVG(data); err != nil {
		return err
	}
	return nil
}

func scanSVG(data []byte) error {
	lowered := strings.ToLower(string(data))
	if !strings.Contains(lowered, "<svg") {
		return nil
	}
	for _, marker := range svgScriptMarkers {
		if strings.Contains(lowered, marker) {
			return fmt.Errorf("scan: svg payload contains %q", marker)
		}
	}
	return nil
}
