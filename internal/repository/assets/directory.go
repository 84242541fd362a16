package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/americanoutlaws/dubai/internal/domain/pass"
	"github.com/americanoutlaws/dubai/internal/logger"
)

// Collector defines how the files of a pass are gathered.
type Collector interface {
	Collect(ctx context.Context, dir string) (*pass.Pass, error)
}

// DirectoryRepository collects pass files from a flat directory on disk.
type DirectoryRepository struct{}

// NewDirectoryRepository creates a collector reading from the local filesystem.
func NewDirectoryRepository() *DirectoryRepository {
	return &DirectoryRepository{}
}

// Collect reads pass.json and every auxiliary file directly inside dir.
// Subdirectories and hidden entries are skipped, nothing is read recursively.
func (r *DirectoryRepository) Collect(ctx context.Context, dir string) (*pass.Pass, error) {
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, pass.ErrDirectoryNotFound)
		}

		return nil, fmt.Errorf("stat %s: %w: %w", dir, pass.ErrUnreadableFile, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, pass.ErrDirectoryNotFound)
	}

	// Sorted by filename, which fixes the manifest and archive order.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", dir, pass.ErrUnreadableFile, err)
	}

	var (
		files         = make([]pass.Asset, 0, len(entries))
		descriptor    []byte
		hasDescriptor bool
	)

	for _, entry := range entries {
		name := entry.Name()

		if strings.HasPrefix(name, ".") {
			logger.DebugKV(ctx, "Skipping hidden entry", "name", name)

			continue
		}

		path := filepath.Join(dir, name)

		mode, err := entryType(entry, path)
		if err != nil {
			return nil, err
		}

		if mode.IsDir() {
			logger.WarnKV(ctx, "Skipping subdirectory, nested assets are not packaged", "name", name)

			continue
		}

		if !mode.IsRegular() {
			logger.WarnKV(ctx, "Skipping entry that is not a regular file", "name", name, "type", mode.String())

			continue
		}

		content, err := readFile(path)
		if err != nil {
			return nil, err
		}

		if name == pass.DescriptorFilename {
			descriptor, hasDescriptor = content, true

			continue
		}

		logger.DebugKV(ctx, "Collected asset", "name", name, "size", len(content))

		files = append(files, pass.Asset{Name: name, Content: content})
	}

	if !hasDescriptor {
		return nil, fmt.Errorf("%s: %w", dir, pass.ErrMissingDescriptor)
	}

	return FromAssets(descriptor, files)
}

// FromAssets builds a Pass from in-memory assets, mapping each name to its
// basename and rejecting names that collide with each other or with the
// entries generated by the packager.
func FromAssets(descriptor []byte, files []pass.Asset) (*pass.Pass, error) {
	if descriptor == nil {
		return nil, pass.ErrMissingDescriptor
	}

	var (
		assets = make([]pass.Asset, 0, len(files))
		seen   = make(map[string]string, len(files))
	)

	for _, file := range files {
		name, err := EntryName(file.Name)
		if err != nil {
			return nil, err
		}

		if pass.IsReservedName(name) {
			return nil, fmt.Errorf("%s is generated by the packager: %w", name, pass.ErrDuplicateAsset)
		}

		if source, ok := seen[name]; ok {
			return nil, fmt.Errorf("%s and %s both map to %s: %w", source, file.Name, name, pass.ErrDuplicateAsset)
		}

		seen[name] = file.Name

		assets = append(assets, pass.Asset{Name: name, Content: file.Content})
	}

	return &pass.Pass{
		Descriptor: descriptor,
		Assets:     assets,
	}, nil
}

// EntryName maps a source path to its archive entry name (the basename).
// Names must be valid UTF-8 so that manifest keys match archive entries byte for byte.
func EntryName(source string) (string, error) {
	name := filepath.Base(filepath.Clean(filepath.FromSlash(source)))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("no file name in %q: %w", source, pass.ErrUnreadableFile)
	}

	if !utf8.ValidString(name) {
		return "", fmt.Errorf("file name %q is not valid UTF-8: %w", name, pass.ErrUnreadableFile)
	}

	return name, nil
}

// entryType returns the file type of entry, following symbolic links.
func entryType(entry fs.DirEntry, path string) (fs.FileMode, error) {
	mode := entry.Type()
	if mode&fs.ModeSymlink == 0 {
		return mode, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w: %w", path, pass.ErrUnreadableFile, err)
	}

	return info.Mode().Type(), nil
}

// readFile reads a whole file, releasing the handle on every path.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, pass.ErrUnreadableFile, err)
	}

	defer func() {
		_ = f.Close()
	}()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", path, pass.ErrUnreadableFile, err)
	}

	return content, nil
}
