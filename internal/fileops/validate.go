package fileops

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/duopane/duopane/internal/fsx"
)

// maxNameLength is the POSIX filename component limit.
const maxNameLength = 255

// ValidateName rejects filenames that cannot safely be created: empty or
// whitespace-only names, path separators, NUL and control characters,
// "."/"..", over-length names, surrounding whitespace, and a leading hyphen
// (which reads as an option to any shell tool touching it later).
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("filename cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New("filename cannot contain path separators")
	}
	if strings.ContainsRune(name, 0) {
		return errors.New("filename cannot contain null bytes")
	}
	if name == "." || name == ".." {
		return errors.New("invalid filename")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("filename too long (max %d bytes)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.New("filename cannot contain control characters")
		}
	}
	if name != strings.TrimSpace(name) {
		return errors.New("filename cannot start or end with whitespace")
	}
	if strings.HasPrefix(name, "-") {
		return errors.New("filename cannot start with hyphen")
	}
	return nil
}

// CreateDir creates a new directory (with parents), refusing if something is
// already there.
func CreateDir(path string) error {
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%s: already exists", path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// RenameEntry renames a single entry in place. The destination must not
// exist and the new leaf name must be valid.
func RenameEntry(oldPath, newPath string) error {
	if err := ValidateName(baseName(newPath)); err != nil {
		return err
	}
	if fsx.SameObject(oldPath, newPath) {
		return errors.New("source and destination are the same")
	}
	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("%s: already exists", newPath)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func baseName(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
