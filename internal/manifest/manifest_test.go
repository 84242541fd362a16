package manifest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/americanoutlaws/dubai/internal/domain/pass"
)

// TestDigest checks lowercase hex SHA-1 against known values.
func TestDigest(t *testing.T) {
	t.Parallel()

	require.Equal(t, "bf21a9e8fbc5a3846fb05b4fa0859e0917b2202f", Digest([]byte("{}")))
	require.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", Digest(nil))
	require.Len(t, Digest([]byte("anything")), 40)
}

// TestBuild_DescriptorOnly verifies the smallest pass produces the expected manifest bytes.
func TestBuild_DescriptorOnly(t *testing.T) {
	t.Parallel()

	m, err := Build(&pass.Pass{Descriptor: []byte("{}")})
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())

	data, err := m.Bytes()
	require.NoError(t, err)
	require.JSONEq(t, `{"pass.json":"bf21a9e8fbc5a3846fb05b4fa0859e0917b2202f"}`, string(data))
	require.Equal(t, `{"pass.json":"bf21a9e8fbc5a3846fb05b4fa0859e0917b2202f"}`, string(data))
}

// TestBuild_EntriesAndOrder ensures one entry per file, descriptor first, assets in collection order.
func TestBuild_EntriesAndOrder(t *testing.T) {
	t.Parallel()

	p := &pass.Pass{
		Descriptor: []byte(`{"description":"Boarding pass"}`),
		Assets: []pass.Asset{
			{Name: "logo.png", Content: []byte("logo")},
			{Name: "icon.png", Content: []byte("icon")},
			{Name: "background.png", Content: []byte("bg")},
		},
	}

	m, err := Build(p)
	require.NoError(t, err)
	require.Equal(t, len(p.Assets)+1, m.Len())

	names := make([]string, 0, m.Len())
	for _, entry := range m.Entries() {
		names = append(names, entry.Name)
	}

	require.Equal(t, p.Names(), names)

	for _, asset := range p.Assets {
		digest, ok := m.Lookup(asset.Name)
		require.True(t, ok)
		require.Equal(t, Digest(asset.Content), digest)
	}

	digest, ok := m.Lookup(pass.DescriptorFilename)
	require.True(t, ok)
	require.Equal(t, Digest(p.Descriptor), digest)

	_, ok = m.Lookup("missing.png")
	require.False(t, ok)
}

// TestBuild_Deterministic verifies identical input always serializes to identical bytes.
func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	p := &pass.Pass{Descriptor: []byte("{}")}
	for i := range 20 {
		p.Assets = append(p.Assets, pass.Asset{
			Name:    fmt.Sprintf("asset-%02d.png", i),
			Content: []byte(fmt.Sprintf("content %d", i)),
		})
	}

	first, err := Build(p)
	require.NoError(t, err)

	firstBytes, err := first.Bytes()
	require.NoError(t, err)

	for range 5 {
		next, err := Build(p.Clone())
		require.NoError(t, err)

		nextBytes, err := next.Bytes()
		require.NoError(t, err)
		require.Equal(t, firstBytes, nextBytes)
	}
}

// TestBuild_IdenticalContent keeps distinct keys for assets sharing content.
func TestBuild_IdenticalContent(t *testing.T) {
	t.Parallel()

	m, err := Build(&pass.Pass{
		Descriptor: []byte("{}"),
		Assets: []pass.Asset{
			{Name: "icon.png", Content: []byte("same")},
			{Name: "icon@2x.png", Content: []byte("same")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	first, ok := m.Lookup("icon.png")
	require.True(t, ok)

	second, ok := m.Lookup("icon@2x.png")
	require.True(t, ok)

	require.Equal(t, "ff3390557335ba88d37755e41514beb03bc499ec", first)
	require.Equal(t, first, second)
}

// TestBuild_Duplicate rejects two assets with the same name.
func TestBuild_Duplicate(t *testing.T) {
	t.Parallel()

	_, err := Build(&pass.Pass{
		Descriptor: []byte("{}"),
		Assets: []pass.Asset{
			{Name: "icon.png", Content: []byte("a")},
			{Name: "icon.png", Content: []byte("b")},
		},
	})
	require.ErrorIs(t, err, pass.ErrDuplicateAsset)

	_, err = Build(&pass.Pass{
		Descriptor: []byte("{}"),
		Assets:     []pass.Asset{{Name: "pass.json", Content: []byte("{}")}},
	})
	require.ErrorIs(t, err, pass.ErrDuplicateAsset)
}

// TestMarshalJSON_Escaping ensures unusual names still produce valid JSON.
func TestMarshalJSON_Escaping(t *testing.T) {
	t.Parallel()

	m := New()
	require.NoError(t, m.Add(`quote"name.png`, "00"))
	require.NoError(t, m.Add("ünïcode.png", "11"))

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	require.JSONEq(t, `{"quote\"name.png":"00","ünïcode.png":"11"}`, string(data))
}

// TestParse reads a manifest back keeping order and rejects malformed input.
func TestParse(t *testing.T) {
	t.Parallel()

	original, err := Build(&pass.Pass{
		Descriptor: []byte("{}"),
		Assets:     []pass.Asset{{Name: "strip.png", Content: []byte("strip")}},
	})
	require.NoError(t, err)

	data, err := original.Bytes()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, original.Entries(), parsed.Entries())

	for _, bad := range []string{``, `[]`, `{"a":1}`, `{"a":"b","a":"c"}`, `{"a":"b"} x`, `{"a":"b"`, `{"a":"b"}}`, `{"a":"b"}{}`} {
		_, err = Parse([]byte(bad))
		require.Error(t, err, bad)
	}

	parsed, err = Parse([]byte("{\"a\":\"b\"}\n"))
	require.NoError(t, err)
	require.Equal(t, 1, parsed.Len())
}

// TestAdd_InvalidUTF8 refuses names that would be rewritten by JSON encoding.
func TestAdd_InvalidUTF8(t *testing.T) {
	t.Parallel()

	m := New()
	require.Error(t, m.Add("logo\xff.png", "00"))
	require.Zero(t, m.Len())

	_, err := Build(&pass.Pass{
		Descriptor: []byte("{}"),
		Assets:     []pass.Asset{{Name: "logo\xff.png", Content: []byte("logo")}},
	})
	require.Error(t, err)
}
