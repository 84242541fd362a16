package packager

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/americanoutlaws/dubai/internal/archive"
	"github.com/americanoutlaws/dubai/internal/config"
	"github.com/americanoutlaws/dubai/internal/domain/pass"
	"github.com/americanoutlaws/dubai/internal/logger"
	"github.com/americanoutlaws/dubai/internal/repository/assets"
	"github.com/americanoutlaws/dubai/internal/signing"
)

// Options contains inputs for the pack entry point. Non-empty fields override the config file.
type Options struct {
	// ConfigPath is the settings file. Empty means dubai-settings.yaml, which may be absent;
	// any other path must exist.
	ConfigPath string
	// Certificate is the path to the PKCS#12 identity bundle.
	Certificate string
	// Password decrypts the identity bundle.
	Password string
	// OutputPath is the archive path; only valid with a single pass directory.
	OutputPath string
	// OutputDir is the directory receiving <pass-dir-name>.pkpass files.
	OutputDir string
	// Compression is "deflate" or "store".
	Compression string
	// LogLevel overrides the configured log level.
	LogLevel string
	// PassDirs are the pass directories to package, in order.
	PassDirs []string
	// Stdout receives the path of every written archive, one per line.
	Stdout io.Writer
}

const (
	// expiryWarningWindow is how long before WWDR expiry a warning is logged.
	expiryWarningWindow = 90 * 24 * time.Hour

	// archiveFileMode is applied to produced archives.
	archiveFileMode os.FileMode = 0o644
)

var (
	// errNoPassDirs indicates that nothing was given to package.
	errNoPassDirs = errors.New("at least one pass directory is required")
	// errOutputWithMany indicates an explicit output path combined with several directories.
	errOutputWithMany = errors.New("an output path can only be used with a single pass directory")
)

// Run executes the packaging workflow for every pass directory.
// The first failure stops the run; archives already written stay in place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "dubai-pack")

	if len(opts.PassDirs) == 0 {
		return errNoPassDirs
	}

	if opts.OutputPath != "" && len(opts.PassDirs) > 1 {
		return errOutputWithMany
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	// The bundle bytes are read once; decoding still happens for every signature.
	identity, err := signing.ReadIdentityFile(cfg.Certificate, cfg.ResolvePassword())
	if err != nil {
		return pass.AtStage(pass.StageSign, err)
	}

	signer, err := signing.NewSigner()
	if err != nil {
		return err
	}

	warnIfExpiring(ctx, signer.Intermediate(), time.Now())

	writer, err := archive.NewWriter(
		archive.WithCompression(archive.Compression(cfg.Compression)),
		archive.WithLevel(*cfg.CompressionLevel),
	)
	if err != nil {
		return err
	}

	svc := NewService(assets.NewDirectoryRepository(), signer, writer)

	for _, dir := range opts.PassDirs {
		if err = ctx.Err(); err != nil {
			return err
		}

		output := outputPath(dir, cfg.OutputDir, opts.OutputPath)

		if err = packageOne(ctx, svc, dir, output, identity); err != nil {
			logger.ErrorKV(ctx, "Packaging failed", "pass_dir", dir, "error", err)

			return fmt.Errorf("package %s: %w", dir, err)
		}

		if opts.Stdout != nil {
			_, _ = fmt.Fprintln(opts.Stdout, output)
		}
	}

	logger.InfoKV(ctx, "Packaging completed", "passes", len(opts.PassDirs))

	return nil
}

// packageOne packages a single directory and writes the archive to output.
func packageOne(ctx context.Context, svc *Service, dir, output string, identity signing.Identity) error {
	data, err := svc.PackageDirectory(ctx, dir, identity)
	if err != nil {
		return err
	}

	if err = WriteFileAtomic(output, data, archiveFileMode); err != nil {
		return pass.AtStage(pass.StageWrite, err)
	}

	logger.InfoKV(ctx, "Pass packaged", "pass_dir", dir, "output", output, "bytes", len(data))

	return nil
}

// resolveConfig merges the optional config file with command line overrides.
func resolveConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.LoadOptional(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Certificate != "" {
		cfg.Certificate = opts.Certificate
	}

	if opts.Password != "" {
		cfg.Password = opts.Password
	}

	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}

	if opts.Compression != "" {
		cfg.Compression = opts.Compression
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	// Validate guarantees the level parses.
	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	return cfg, nil
}

// outputPath picks the archive path for dir.
func outputPath(dir, outputDir, explicit string) string {
	if explicit != "" {
		return filepath.Clean(explicit)
	}

	dir = filepath.Clean(dir)

	if outputDir == "" {
		outputDir = filepath.Dir(dir)
	}

	return filepath.Join(outputDir, filepath.Base(dir)+pass.FileExtension)
}

// warnIfExpiring logs a warning when the embedded intermediate is about to expire.
func warnIfExpiring(ctx context.Context, cert *x509.Certificate, now time.Time) {
	if !signing.ExpiresWithin(cert, now, expiryWarningWindow) {
		return
	}

	logger.WarnKV(ctx, "The embedded WWDR certificate expires soon, upgrade dubai",
		"version", signing.WWDRCertificateVersion,
		"not_after", cert.NotAfter.Format(time.DateOnly),
	)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place,
// so readers never observe a partially written archive.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file: %w: %w", pass.ErrArchiveWrite, err)
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w: %w", tmp.Name(), pass.ErrArchiveWrite, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w: %w", tmp.Name(), pass.ErrArchiveWrite, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %w", tmp.Name(), pass.ErrArchiveWrite, err)
	}

	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w: %w", tmp.Name(), pass.ErrArchiveWrite, err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w: %w", path, pass.ErrArchiveWrite, err)
	}

	return nil
}
