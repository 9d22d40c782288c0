// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const (
	// DefaultHeaderMarker is the word that opens a description's declaration.
	DefaultHeaderMarker = "HANDLE"
	// DefaultEndMarker opens the line that closes the header block.
	DefaultEndMarker = "**"
)

// headerTokenPattern picks the first bare token at the start of a line.
var headerTokenPattern = regexp.MustCompile(`^\s*(\w\S*)`)

// Header is what a candidate file declares about itself.
type Header struct {
	// Handle is the identifier the file declares.
	Handle string
	// Line is the 1-based line of the declaration. Only matches below it
	// count as ownership references.
	Line int
}

// ParseHeader scans r for the first line containing marker and returns the
// first bare token on a later line. Scanning stops at a line starting with
// endMarker. ok is false when no declaration was found.
func ParseHeader(r io.Reader, marker, endMarker string) (h Header, ok bool, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seenMarker := false
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if !seenMarker {
			seenMarker = strings.Contains(line, marker)
			continue
		}
		if endMarker != "" && strings.HasPrefix(line, endMarker) {
			break
		}
		if m := headerTokenPattern.FindStringSubmatch(line); m != nil {
			return Header{Handle: m[1], Line: lineNum}, true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Header{}, false, err
	}
	return Header{}, false, nil
}

// ParseHeaderFile opens path and parses its header.
func ParseHeaderFile(path, marker, endMarker string) (Header, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, false, err
	}
	defer f.Close()

	h, ok, err := ParseHeader(f, marker, endMarker)
	if err != nil {
		return Header{}, false, fmt.Errorf("reading header: %w", err)
	}
	return h, ok, nil
}
