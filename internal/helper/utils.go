package helper

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultTitle is used when no usable filename is available.
const DefaultTitle = "Untitled"

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// HashContent returns the SHA-256 digest of the text's UTF-8 bytes as a
// lowercase hex string. The same text always maps to the same hash; this is
// the dedup key for documents.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// TitleFromFilename derives a document title from a source filename by
// stripping the directory and extension. Empty input yields DefaultTitle.
func TitleFromFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		return DefaultTitle
	}
	title := strings.TrimSuffix(base, filepath.Ext(base))
	if title == "" {
		return DefaultTitle
	}
	return title
}
