package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/americanoutlaws/dubai/internal/domain/pass"
)

// Compression selects how entries are stored.
type Compression string

const (
	// CompressionDeflate compresses every entry with deflate.
	CompressionDeflate Compression = "deflate"
	// CompressionStore stores every entry uncompressed.
	CompressionStore Compression = "store"

	// DefaultLevel is the deflate level used unless configured otherwise.
	DefaultLevel = flate.DefaultCompression

	// maxEntryBytes caps a single entry when reading archives back.
	maxEntryBytes = int64(100 * 1024 * 1024)
)

var (
	errUnknownCompression = errors.New("unknown compression")
	errInvalidLevel       = errors.New("invalid compression level")
	errInvalidEntryName   = errors.New("invalid entry name")
	errEntryTooLarge      = errors.New("archive entry too large")
)

// Entry is a single archive member.
type Entry struct {
	// Name is the entry name, a bare file name without directories.
	Name string
	// Content is written verbatim.
	Content []byte
}

// ParseCompression validates a compression name. An empty name selects deflate.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionDeflate:
		return CompressionDeflate, nil
	case CompressionStore:
		return CompressionStore, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownCompression, s)
	}
}

// ValidateLevel checks that level is accepted by the deflate compressor.
func ValidateLevel(level int) error {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return fmt.Errorf("%w: %d", errInvalidLevel, level)
	}

	return nil
}

// Writer builds archives with a fixed compression setup.
type Writer struct {
	// compression is applied to every entry.
	compression Compression
	// level is the deflate level.
	level int
	// now supplies the entry modification time.
	now func() time.Time
}

// Option configures a Writer.
type Option func(*Writer)

// WithCompression selects deflate or store.
func WithCompression(c Compression) Option {
	return func(w *Writer) {
		w.compression = c
	}
}

// WithLevel sets the deflate level.
func WithLevel(level int) Option {
	return func(w *Writer) {
		w.level = level
	}
}

// WithModified fixes the modification time of every entry, making output reproducible.
func WithModified(t time.Time) Option {
	return func(w *Writer) {
		w.now = func() time.Time { return t }
	}
}

// NewWriter returns a Writer using deflate at the default level unless configured otherwise.
func NewWriter(options ...Option) (*Writer, error) {
	w := &Writer{
		compression: CompressionDeflate,
		level:       DefaultLevel,
		now:         time.Now,
	}

	for _, option := range options {
		option(w)
	}

	if _, err := ParseCompression(string(w.compression)); err != nil {
		return nil, err
	}

	if err := ValidateLevel(w.level); err != nil {
		return nil, err
	}

	return w, nil
}

// Entries lays out the members of a pass archive in their fixed order.
func Entries(p *pass.Pass, manifest, signature []byte) []Entry {
	entries := make([]Entry, 0, len(p.Assets)+3)
	entries = append(entries,
		Entry{Name: pass.DescriptorFilename, Content: p.Descriptor},
		Entry{Name: pass.ManifestFilename, Content: manifest},
		Entry{Name: pass.SignatureFilename, Content: signature},
	)

	for _, asset := range p.Assets {
		entries = append(entries, Entry{Name: asset.Name, Content: asset.Content})
	}

	return entries
}

// Build writes entries into a new ZIP archive and returns its bytes.
func (w *Writer) Build(entries []Entry) ([]byte, error) {
	if err := validateNames(entries); err != nil {
		return nil, err
	}

	var (
		buf      bytes.Buffer
		zw       = zip.NewWriter(&buf)
		method   = zip.Deflate
		modified = w.now()
	)

	if w.compression == CompressionStore {
		method = zip.Store
	} else {
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, w.level)
		})
	}

	for _, entry := range entries {
		header := &zip.FileHeader{
			Name:     entry.Name,
			Method:   method,
			Modified: modified,
		}

		dst, err := zw.CreateHeader(header)
		if err != nil {
			_ = zw.Close()

			return nil, fmt.Errorf("create entry %s: %w: %w", entry.Name, pass.ErrArchiveWrite, err)
		}

		if _, err = dst.Write(entry.Content); err != nil {
			_ = zw.Close()

			return nil, fmt.Errorf("write entry %s: %w: %w", entry.Name, pass.ErrArchiveWrite, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w: %w", pass.ErrArchiveWrite, err)
	}

	return buf.Bytes(), nil
}

// validateNames rejects empty, nested, non UTF-8 and duplicated entry names.
func validateNames(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		if entry.Name == "" || entry.Name == "." || entry.Name == ".." || strings.ContainsAny(entry.Name, `/\`) ||
			!utf8.ValidString(entry.Name) {
			return fmt.Errorf("%w %q: %w", errInvalidEntryName, entry.Name, pass.ErrArchiveWrite)
		}

		if _, ok := seen[entry.Name]; ok {
			return fmt.Errorf("entry %s: %w", entry.Name, pass.ErrDuplicateAsset)
		}

		seen[entry.Name] = struct{}{}
	}

	return nil
}

// Read returns every entry of a ZIP archive in stored order.
func Read(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	entries := make([]Entry, 0, len(zr.File))

	for _, file := range zr.File {
		content, err := readEntry(file)
		if err != nil {
			return nil, err
		}

		entries = append(entries, Entry{Name: file.Name, Content: content})
	}

	return entries, nil
}

// Lookup returns the content of the named entry.
func Lookup(entries []Entry, name string) ([]byte, bool) {
	for _, entry := range entries {
		if entry.Name == name {
			return entry.Content, true
		}
	}

	return nil, false
}

// readEntry reads a single entry, closing it on every path.
func readEntry(file *zip.File) ([]byte, error) {
	if file.UncompressedSize64 > uint64(maxEntryBytes) {
		return nil, fmt.Errorf("%s: %w", file.Name, errEntryTooLarge)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", file.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	content, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", file.Name, err)
	}

	if int64(len(content)) > maxEntryBytes {
		return nil, fmt.Errorf("%s: %w", file.Name, errEntryTooLarge)
	}

	return content, nil
}
