package system

import (
	"os"

	"github.com/girste/containaudit/internal/errors"
)

// FindSentinel returns the first sentinel marker that exists.
func FindSentinel(sentinels []string) (string, bool) {
	for _, path := range sentinels {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// InContainer reports whether any sentinel marker file is present.
func InContainer(sentinels []string) bool {
	_, ok := FindSentinel(sentinels)
	return ok
}

// RequireContainer returns ErrNotInContainer when no sentinel is present.
// Downstream checks assume container-scoped namespace and cgroup semantics,
// so nothing may run when this fails.
func RequireContainer(sentinels []string) error {
	if InContainer(sentinels) {
		return nil
	}
	return errors.Wrap(errors.ErrNotInContainer, "no sentinel found among %v", sentinels)
}
