package vaultpath

import (
	"fmt"
	"strings"

	"github.com/starford/vaultfold/internal/apperr"
)

const maxNameBytes = 255

const invalidNameChars = `<>:"|?*/\`

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// ValidateName checks a single folder name and returns it trimmed of
// surrounding whitespace.
func ValidateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", apperr.Validation("", name, "folder name is empty", "provide a non-blank folder name")
	}
	if n == "." || n == ".." {
		return "", apperr.Validation("", name, "folder name cannot be '.' or '..'", "choose a regular folder name")
	}
	if i := strings.IndexAny(n, invalidNameChars); i >= 0 {
		return "", apperr.Validation("", name, fmt.Sprintf("folder name contains invalid character %q", n[i]),
			"remove any of < > : \" | ? * / \\ from the name; use move to change the parent folder")
	}
	for _, r := range n {
		if r < 0x20 || r == 0x7f {
			return "", apperr.Validation("", name, "folder name contains control characters", "remove control characters from the name")
		}
	}
	if len(n) > maxNameBytes {
		return "", apperr.Validation("", name, fmt.Sprintf("folder name is longer than %d bytes", maxNameBytes), "shorten the name")
	}
	stem := n
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if _, ok := reservedNames[strings.ToUpper(stem)]; ok {
		return "", apperr.Validation("", name, fmt.Sprintf("%q is a reserved device name", n), "choose a different folder name")
	}
	return n, nil
}
