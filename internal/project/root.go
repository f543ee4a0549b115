package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ManifestName is the project file looked up by every tool.
const ManifestName = "hgb.toml"

// FindManifest walks up from startDir to locate hgb.toml. startDir must be
// absolute.
func FindManifest(fs afero.Fs, startDir string) (path string, ok bool, err error) {
	if !filepath.IsAbs(startDir) {
		return "", false, fmt.Errorf("start directory %q is not absolute", startDir)
	}
	dir := filepath.Clean(startDir)
	for {
		candidate := filepath.Join(dir, ManifestName)
		if info, err := fs.Stat(candidate); err == nil {
			if !info.IsDir() {
				return candidate, true, nil
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
