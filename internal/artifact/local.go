package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"go.uber.org/zap"
)

const (
	jsonDir  = "json"
	imageDir = "images"
)

// LocalStore writes artifacts under Root and returns paths relative to the
// working directory, e.g. generated/images/ember.png. Saving the same name
// twice overwrites the earlier file.
type LocalStore struct {
	Root string
	log  *zap.Logger
}

func NewLocalStore(root string, log *zap.Logger) (*LocalStore, error) {
	if root == "" {
		root = "generated"
	}
	if log == nil {
		log = zap.NewNop()
	}
	for _, dir := range []string{jsonDir, imageDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("artifact: create %s: %w", dir, err)
		}
	}
	return &LocalStore{Root: root, log: log}, nil
}

func (s *LocalStore) SaveJSON(ctx context.Context, name string, v any) (string, error) {
	name, err := cleanName("save json", name)
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", faults.E(faults.Internal, "save json", err)
	}
	return s.write(jsonDir, name+".json", b)
}

func (s *LocalStore) SaveImage(ctx context.Context, data []byte, name string) (string, error) {
	name, err := cleanName("save image", name)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", faults.Errorf(faults.Validation, "save image", "no image data for %s", name)
	}
	return s.write(imageDir, name+".png", data)
}

// write replaces dir/file atomically: readers see the old or the new file,
// never a partial one.
func (s *LocalStore) write(dir, file string, data []byte) (string, error) {
	target := filepath.Join(s.Root, dir, file)
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+file+".*")
	if err != nil {
		return "", faults.E(faults.Internal, "artifact", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", faults.E(faults.Internal, "artifact", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", faults.E(faults.Internal, "artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return "", faults.E(faults.Internal, "artifact", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", faults.E(faults.Internal, "artifact", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", faults.E(faults.Internal, "artifact", err)
	}

	uri := path.Join(filepath.ToSlash(s.Root), dir, file)
	s.log.Info("artifact saved", zap.String("path", uri), zap.Int("bytes", len(data)))
	return uri, nil
}
