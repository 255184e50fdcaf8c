package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
	"github.com/sparkpanel/sparkd/internal/metrics"
)

var errNoBuilder = errors.New("image source given but no builder configured")

// Provisioner makes sure an image is present locally, either by pulling it or by
// building it from source.
type Provisioner struct {
	engine  ports.Engine
	builder ports.ImageBuilder
	logger  zerolog.Logger
}

// NewProvisioner returns a Provisioner. builder may be nil when source builds are disabled.
func NewProvisioner(engine ports.Engine, builder ports.ImageBuilder, logger zerolog.Logger) *Provisioner {
	return &Provisioner{engine: engine, builder: builder, logger: logger}
}

// EnsureImage pulls image, or builds it when src names a repository.
// It blocks until the pull or build completes.
func (p *Provisioner) EnsureImage(ctx context.Context, image string, src *domain.ImageSource) error {
	if src != nil && src.Repository != "" {
		if p.builder == nil {
			return errNoBuilder
		}
		p.logger.Info().Str("image", image).Str("repository", src.Repository).Msg("building image from source")
		return p.builder.BuildImage(ctx, *src, image)
	}

	p.logger.Debug().Str("image", image).Msg("pulling image")
	return p.engine.PullImage(ctx, image)
}

// tryEnsureImage provisions the image and absorbs the failure: the image may already
// exist locally from an earlier pull.
func (p *Provisioner) tryEnsureImage(ctx context.Context, serverID, image string, src *domain.ImageSource) {
	if err := p.EnsureImage(ctx, image, src); err != nil {
		metrics.ImagePullFailuresTotal.Inc()
		p.logger.Warn().Err(err).Str("server_id", serverID).Str("image", image).
			Msg("image provisioning failed, continuing with local image")
	}
}
