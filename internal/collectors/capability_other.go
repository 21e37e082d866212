//go:build !linux

package collectors

import (
	"context"

	"github.com/girste/containaudit/internal/errors"
)

// KernelProvider is only implemented on Linux.
type KernelProvider struct{}

func (p *KernelProvider) Name() string { return "kernel" }

func (p *KernelProvider) Capabilities(ctx context.Context) ([]string, error) {
	return nil, errors.Wrap(errors.ErrUnavailable, "kernel capability query requires linux")
}
