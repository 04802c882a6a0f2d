package importer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// libraryExtensions are the file suffixes Import picks up.
var libraryExtensions = []string{".yaml", ".yml", ".yaml.gz", ".yml.gz"}

func isLibraryFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range libraryExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ReadLibraryFile returns the contents of a library file, gunzipping
// files that end in .gz.
func ReadLibraryFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header %s: %w", path, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip decode %s: %w", path, err)
	}
	return out, nil
}
