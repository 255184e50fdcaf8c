package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

// Adapter builds server images from a git repository.
type Adapter struct {
	cli    *client.Client
	clone  cloneFunc
	logger zerolog.Logger
}

type cloneFunc func(ctx context.Context, dir string, opts *git.CloneOptions) error

func plainClone(ctx context.Context, dir string, opts *git.CloneOptions) error {
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	return err
}

func NewBuilderAdapter(cli *client.Client, logger zerolog.Logger) *Adapter {
	return &Adapter{cli: cli, clone: plainClone, logger: logger}
}

// BuildImage clones the repository and builds it as imageName
func (a *Adapter) BuildImage(ctx context.Context, src domain.ImageSource, imageName string) error {
	// 1. Create temporary directory
	tmpDir, err := os.MkdirTemp("", "sparkd-build-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// 2. Clone Repository
	a.logger.Info().Str("repository", src.Repository).Str("ref", src.Ref).Msg("cloning image source")
	if err := a.cloneSource(ctx, tmpDir, src); err != nil {
		return fmt.Errorf("failed to clone repo: %w", err)
	}

	// 3. Create Build Context (Tar)
	tar, err := archive.TarWithOptions(tmpDir, &archive.TarOptions{ExcludePatterns: []string{".git"}})
	if err != nil {
		return fmt.Errorf("failed to create build context: %w", err)
	}
	defer tar.Close()

	// 4. Build Docker Image
	dockerfile := src.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	a.logger.Info().Str("image", imageName).Msg("building image")
	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string{imageName},
		Dockerfile: dockerfile,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	// The build runs until the body is drained; step failures arrive inside the stream.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("failed to build image %s: %w", imageName, err)
	}
	return nil
}

// cloneSource clones src into dir. A short ref is tried as a branch first, then as a tag.
func (a *Adapter) cloneSource(ctx context.Context, dir string, src domain.ImageSource) error {
	var err error
	for i, opts := range cloneAttempts(src) {
		if i > 0 {
			if err := resetDir(dir); err != nil {
				return err
			}
			a.logger.Debug().Str("ref", opts.ReferenceName.String()).Msg("retrying clone")
		}
		if err = a.clone(ctx, dir, opts); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func cloneAttempts(src domain.ImageSource) []*git.CloneOptions {
	opts := cloneOptions(src)
	if src.Ref == "" || strings.HasPrefix(src.Ref, "refs/") {
		return []*git.CloneOptions{opts}
	}
	tag := *opts
	tag.ReferenceName = plumbing.NewTagReferenceName(src.Ref)
	return []*git.CloneOptions{opts, &tag}
}

func cloneOptions(src domain.ImageSource) *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:   src.Repository,
		Depth: 1,
	}
	switch {
	case src.Ref == "":
	case strings.HasPrefix(src.Ref, "refs/"):
		opts.ReferenceName = plumbing.ReferenceName(src.Ref)
		opts.SingleBranch = true
	default:
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Ref)
		opts.SingleBranch = true
	}
	return opts
}

// resetDir empties dir after a failed clone attempt.
func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.ImageBuilder = (*Adapter)(nil)
