// Package artifact persists generated metadata documents and images and
// returns the URI the chain records point at.
package artifact

import (
	"context"
	"strings"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
)

type Store interface {
	// SaveJSON stores v as <name>.json and returns its URI.
	SaveJSON(ctx context.Context, name string, v any) (string, error)
	// SaveImage stores PNG bytes as <name>.png and returns its URI.
	SaveImage(ctx context.Context, data []byte, name string) (string, error)
}

// cleanName keeps a caller-supplied name inside its directory.
func cleanName(op, name string) (string, error) {
	name = strings.NewReplacer("/", "-", `\`, "-", "\x00", "").Replace(strings.TrimSpace(name))
	name = strings.Trim(name, ".")
	if name == "" {
		return "", faults.Errorf(faults.Validation, op, "empty artifact name")
	}
	return name, nil
}
