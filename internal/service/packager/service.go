package packager

import (
	"context"
	"fmt"

	"github.com/americanoutlaws/dubai/internal/archive"
	"github.com/americanoutlaws/dubai/internal/domain/pass"
	"github.com/americanoutlaws/dubai/internal/logger"
	"github.com/americanoutlaws/dubai/internal/manifest"
	"github.com/americanoutlaws/dubai/internal/repository/assets"
	"github.com/americanoutlaws/dubai/internal/signing"
)

// Service runs the collect, manifest, sign and archive pipeline.
// It keeps no per-pass state, so one Service may package many passes concurrently.
type Service struct {
	// collector reads pass files.
	collector assets.Collector
	// signer produces the detached manifest signature.
	signer *signing.Signer
	// writer assembles the archive.
	writer *archive.Writer
}

// NewService creates a Service from its collaborators.
func NewService(collector assets.Collector, signer *signing.Signer, writer *archive.Writer) *Service {
	return &Service{
		collector: collector,
		signer:    signer,
		writer:    writer,
	}
}

// NewDefaultService creates a Service reading from disk, signing with the WWDR
// intermediate and compressing with the given archive options.
func NewDefaultService(options ...archive.Option) (*Service, error) {
	signer, err := signing.NewSigner()
	if err != nil {
		return nil, err
	}

	writer, err := archive.NewWriter(options...)
	if err != nil {
		return nil, err
	}

	return NewService(assets.NewDirectoryRepository(), signer, writer), nil
}

// Package signs p with id and returns the complete archive.
// Nothing is returned unless every stage succeeds.
func (s *Service) Package(ctx context.Context, p *pass.Pass, id signing.Identity) ([]byte, error) {
	m, err := manifest.Build(p)
	if err != nil {
		return nil, pass.AtStage(pass.StageManifest, err)
	}

	manifestBytes, err := m.Bytes()
	if err != nil {
		return nil, pass.AtStage(pass.StageManifest, err)
	}

	logger.DebugKV(ctx, "Manifest built", "entries", m.Len())

	signature, err := s.signer.Sign(manifestBytes, id)
	if err != nil {
		return nil, pass.AtStage(pass.StageSign, err)
	}

	logger.DebugKV(ctx, "Manifest signed", "signature_bytes", len(signature))

	data, err := s.writer.Build(archive.Entries(p, manifestBytes, signature))
	if err != nil {
		return nil, pass.AtStage(pass.StageArchive, err)
	}

	return data, nil
}

// PackageDirectory collects the pass in dir and packages it.
func (s *Service) PackageDirectory(ctx context.Context, dir string, id signing.Identity) ([]byte, error) {
	ctx = logger.WithKV(ctx, "pass_dir", dir)

	p, err := s.collector.Collect(ctx, dir)
	if err != nil {
		return nil, pass.AtStage(pass.StageCollect, err)
	}

	logger.DebugKV(ctx, "Pass collected", "assets", len(p.Assets))

	return s.Package(ctx, p, id)
}

// Manifest collects the pass in dir and returns its manifest without signing anything.
func (s *Service) Manifest(ctx context.Context, dir string) (*pass.Pass, *manifest.Manifest, error) {
	p, err := s.collector.Collect(ctx, dir)
	if err != nil {
		return nil, nil, pass.AtStage(pass.StageCollect, err)
	}

	m, err := manifest.Build(p)
	if err != nil {
		return nil, nil, pass.AtStage(pass.StageManifest, fmt.Errorf("build manifest: %w", err))
	}

	return p, m, nil
}
