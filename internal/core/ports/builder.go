package ports

import (
	"context"

	"github.com/sparkpanel/sparkd/internal/core/domain"
)

// ImageBuilder builds container images from source code.
type ImageBuilder interface {
	// BuildImage clones the source repository and builds it tagged as imageName.
	BuildImage(ctx context.Context, src domain.ImageSource, imageName string) error
}
