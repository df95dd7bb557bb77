// Package files handles content hashing for dedup and storage of uploaded
// files.
package files

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// ContentHash computes the dedup hash for a piece of content. The content
// body is lowercased and whitespace-collapsed before hashing so trivial
// formatting differences don't defeat dedup; the label (source URL or file
// name) and title are mixed in verbatim so the same text from different
// sources stays distinct.
func ContentHash(content, label, title string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	h := sha256.Sum256([]byte(normalized + "|" + label + "|" + title))
	return hex.EncodeToString(h[:])
}

// IsAllowedType reports whether the file name has an accepted upload
// extension. Only PDFs are accepted.
func IsAllowedType(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// Extension returns the lowercased extension of a file name, dot included.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// SaveUpload writes uploaded bytes into dir under a digest-derived name,
// keeping the original extension. Returns the stored path.
func SaveUpload(r io.Reader, originalName, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	sum := md5.Sum(data)
	name := hex.EncodeToString(sum[:]) + Extension(originalName)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return path, nil
}

// Delete removes a stored file, best effort. Returns whether the file was
// actually removed.
func Delete(path string) bool {
	if path == "" {
		return false
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("could not remove file %s: %v", path, err)
		}
		return false
	}
	return true
}
