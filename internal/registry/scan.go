package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dialogd/internal/common/fsutil"
	"dialogd/pkg/types"
)

// ScanDir walks a directory for *.gguf files and builds model configs from
// the filenames. The id is the full filename (including extension) and the
// task defaults to text-generation, matching what a models directory holds
// in practice.
func ScanDir(dir string) ([]types.ModelConfig, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var configs []types.ModelConfig
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		configs = append(configs, types.ModelConfig{
			ID:   name,
			Task: types.TaskTextGeneration,
			Path: filepath.Join(abs, name),
		})
	}
	return configs, nil
}
