package manifest

import (
	"bytes"
	"crypto"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/americanoutlaws/dubai/internal/domain/pass"

	// Register SHA-1 for DigestFunction.
	_ "crypto/sha1"
)

// DigestFunction is the hash applied to every file of the pass.
const DigestFunction crypto.Hash = crypto.SHA1

var (
	errInvalidManifest = errors.New("invalid manifest")
	// errInvalidName is returned for names JSON cannot carry unchanged.
	errInvalidName = errors.New("entry name is not valid UTF-8")
)

// Entry is a single file name and its digest.
type Entry struct {
	// Name is the archive entry name.
	Name string
	// Digest is the lowercase hex digest of the file content.
	Digest string
}

// Manifest is an ordered name to digest mapping.
type Manifest struct {
	// entries keeps insertion order.
	entries []Entry
	// index maps names to positions in entries.
	index map[string]int
}

// Digest returns the lowercase hex SHA-1 of content.
func Digest(content []byte) string {
	hasher := DigestFunction.New()
	// hash.Hash never returns an error from Write.
	_, _ = hasher.Write(content)

	return hex.EncodeToString(hasher.Sum(nil))
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		index: make(map[string]int),
	}
}

// Build hashes the descriptor and every asset of p, descriptor first.
func Build(p *pass.Pass) (*Manifest, error) {
	m := &Manifest{
		entries: make([]Entry, 0, len(p.Assets)+1),
		index:   make(map[string]int, len(p.Assets)+1),
	}

	if err := m.Add(pass.DescriptorFilename, Digest(p.Descriptor)); err != nil {
		return nil, err
	}

	for _, asset := range p.Assets {
		if err := m.Add(asset.Name, Digest(asset.Content)); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Add appends an entry, refusing names that are already present or not valid UTF-8.
func (m *Manifest) Add(name, digest string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q", errInvalidName, name)
	}

	if _, ok := m.index[name]; ok {
		return fmt.Errorf("%s: %w", name, pass.ErrDuplicateAsset)
	}

	m.index[name] = len(m.entries)
	m.entries = append(m.entries, Entry{Name: name, Digest: digest})

	return nil
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Lookup returns the digest recorded for name.
func (m *Manifest) Lookup(name string) (string, bool) {
	i, ok := m.index[name]
	if !ok {
		return "", false
	}

	return m.entries[i].Digest, true
}

// Entries returns a copy of the entries in insertion order.
func (m *Manifest) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// MarshalJSON renders a compact JSON object keeping insertion order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, entry := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("encode name %q: %w", entry.Name, err)
		}

		digest, err := json.Marshal(entry.Digest)
		if err != nil {
			return nil, fmt.Errorf("encode digest of %q: %w", entry.Name, err)
		}

		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(digest)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Bytes returns the serialized manifest stored as manifest.json.
func (m *Manifest) Bytes() ([]byte, error) {
	return m.MarshalJSON()
}

// Parse decodes a serialized manifest.
func Parse(data []byte) (*Manifest, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidManifest, err)
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected object", errInvalidManifest)
	}

	m := New()

	for decoder.More() {
		var name, digest string

		token, err = decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidManifest, err)
		}

		name, _ = token.(string)

		if err = decoder.Decode(&digest); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %w", errInvalidManifest, name, err)
		}

		if err = m.Add(name, digest); err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidManifest, err)
		}
	}

	if _, err = decoder.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidManifest, err)
	}

	if _, err = decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", errInvalidManifest)
	}

	return m, nil
}
