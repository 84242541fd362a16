package packager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/americanoutlaws/dubai/internal/archive"
	"github.com/americanoutlaws/dubai/internal/domain/pass"
	"github.com/americanoutlaws/dubai/internal/logger"
	"github.com/americanoutlaws/dubai/internal/manifest"
	"github.com/americanoutlaws/dubai/internal/repository/assets"
)

// Manifest output formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// ManifestOptions contains inputs for the manifest entry point.
type ManifestOptions struct {
	// Path is a pass directory or an existing .pkpass archive.
	Path string
	// Format is "json" or "table".
	Format string
	// Stdout receives the rendered manifest.
	Stdout io.Writer
}

// manifestRow is a single rendered manifest line.
type manifestRow struct {
	// name is the entry name.
	name string
	// digest is the recorded digest.
	digest string
	// size is the entry size in bytes, -1 when the file is missing.
	size int
}

var (
	errUnknownFormat     = errors.New("unknown output format")
	errManifestNotInPass = errors.New("archive has no manifest.json")
)

// RunManifest prints the manifest of a pass directory, or the one stored in a .pkpass archive.
func RunManifest(ctx context.Context, opts *ManifestOptions) error {
	ctx = logger.WithName(ctx, "dubai-manifest")

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
	}

	if format != FormatJSON && format != FormatTable {
		return fmt.Errorf("%w: %q", errUnknownFormat, opts.Format)
	}

	info, err := os.Stat(opts.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", opts.Path, err)
	}

	var (
		m    *manifest.Manifest
		rows []manifestRow
	)

	if err == nil && !info.IsDir() {
		m, rows, err = manifestFromArchive(opts.Path)
	} else {
		m, rows, err = manifestFromDirectory(ctx, opts.Path)
	}

	if err != nil {
		return err
	}

	if format == FormatTable {
		renderTable(opts.Stdout, rows)

		return nil
	}

	data, err := m.Bytes()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(opts.Stdout, string(data))

	return err
}

// manifestFromDirectory builds the manifest the packager would sign for dir.
func manifestFromDirectory(ctx context.Context, dir string) (*manifest.Manifest, []manifestRow, error) {
	svc := NewService(assets.NewDirectoryRepository(), nil, nil)

	p, m, err := svc.Manifest(ctx, dir)
	if err != nil {
		return nil, nil, err
	}

	sizes := make(map[string]int, len(p.Assets)+1)
	sizes[pass.DescriptorFilename] = len(p.Descriptor)

	for _, asset := range p.Assets {
		sizes[asset.Name] = len(asset.Content)
	}

	return m, rowsFor(m, func(name string) int { return sizes[name] }), nil
}

// manifestFromArchive reads manifest.json out of an existing archive.
func manifestFromArchive(path string) (*manifest.Manifest, []manifestRow, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w: %w", path, pass.ErrUnreadableFile, err)
	}

	entries, err := archive.Read(data)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	manifestBytes, ok := archive.Lookup(entries, pass.ManifestFilename)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", path, errManifestNotInPass)
	}

	m, err := manifest.Parse(manifestBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, rowsFor(m, func(name string) int {
		content, found := archive.Lookup(entries, name)
		if !found {
			return -1
		}

		return len(content)
	}), nil
}

// rowsFor pairs every manifest entry with its size.
func rowsFor(m *manifest.Manifest, size func(name string) int) []manifestRow {
	rows := make([]manifestRow, 0, m.Len())

	for _, entry := range m.Entries() {
		rows = append(rows, manifestRow{
			name:   entry.Name,
			digest: entry.Digest,
			size:   size(entry.Name),
		})
	}

	return rows
}

// renderTable writes rows as a borderless table.
func renderTable(w io.Writer, rows []manifestRow) {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"File", "SHA-1", "Size"})

	for _, row := range rows {
		size := "missing"
		if row.size >= 0 {
			size = fmt.Sprintf("%d", row.size)
		}

		t.AppendRow(table.Row{row.name, row.digest, size})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
	})

	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()

	_, _ = w.Write(buf.Bytes())
}
