// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// optionalSuffix marks an env file that may be missing.
const optionalSuffix = "?"

// LoadEnvFile reads the dotenv file at path into env, overriding existing
// keys. Relative paths are resolved against baseDir. A path ending in "?"
// names an optional file: if it does not exist, nothing happens.
func LoadEnvFile(env map[string]string, path, baseDir string) error {
	optional := strings.HasSuffix(path, optionalSuffix)
	path = strings.TrimSuffix(path, optionalSuffix)

	full := filepath.FromSlash(path)
	if !filepath.IsAbs(full) {
		full = filepath.Join(baseDir, full)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading env file %s: %w", path, err)
	}
	return ParseEnvFile(env, content, path)
}

// ParseEnvFile merges dotenv content into env. It accepts blank lines,
// "#" comments, an optional "export " prefix, unquoted values (a " #"
// starts an inline comment), single-quoted literal values and
// double-quoted values with backslash escapes.
func ParseEnvFile(env map[string]string, content []byte, filename string) error {
	for i, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return &EnvFileError{File: filename, Line: i + 1, Reason: "missing '='"}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return &EnvFileError{File: filename, Line: i + 1, Reason: "empty variable name"}
		}
		parsed, reason := envValue(strings.TrimSpace(value))
		if reason != "" {
			return &EnvFileError{File: filename, Line: i + 1, Reason: reason}
		}
		env[key] = parsed
	}
	return nil
}

// envValue returns the decoded value, or a non-empty reason when the value
// is malformed.
func envValue(v string) (string, string) {
	if v == "" {
		return "", ""
	}
	switch q := v[0]; q {
	case '"', '\'':
		if len(v) < 2 || v[len(v)-1] != q {
			return "", "unterminated quote"
		}
		inner := v[1 : len(v)-1]
		if q == '\'' {
			return inner, ""
		}
		return unescape(inner), ""
	}
	if idx := strings.Index(v, " #"); idx >= 0 {
		v = strings.TrimSpace(v[:idx])
	}
	return v, ""
}

var escapes = map[byte]byte{
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'\\': '\\',
	'"':  '"',
	'$':  '$',
}

// unescape decodes backslash escapes. Unknown escapes are kept verbatim.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		if r, ok := escapes[s[i+1]]; ok {
			b.WriteByte(r)
		} else {
			b.WriteByte('\\')
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}
