package integration

import (
	stdzip "archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mozilla.org/pkcs7"

	"github.com/americanoutlaws/dubai/internal/config"
	"github.com/americanoutlaws/dubai/internal/manifest"
	"github.com/americanoutlaws/dubai/internal/service/packager"
	"github.com/americanoutlaws/dubai/internal/signing"
	"github.com/americanoutlaws/dubai/internal/signing/signingtest"
)

// unzip reads every member of a .pkpass with the standard library reader, in archive order.
func unzip(t *testing.T, path string) ([]string, map[string][]byte) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	zr, err := stdzip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	contents := make(map[string][]byte, len(zr.File))

	for _, file := range zr.File {
		rc, err := file.Open()
		require.NoError(t, err)

		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		names = append(names, file.Name)
		contents[file.Name] = content
	}

	return names, contents
}

// TestPack_EndToEnd packages two pass directories using the default settings file
// and a password taken from the environment.
func TestPack_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	id := signingtest.NewIdentity(t, "integration-secret")
	t.Setenv(config.DefaultPasswordEnv, "integration-secret")

	require.NoError(t, os.WriteFile("identity.p12", id.Bundle, 0o600))
	require.NoError(t, os.Mkdir("dist", 0o700))
	require.NoError(t, config.Save(config.DefaultConfigFilename, &config.Config{
		Certificate: "identity.p12",
		OutputDir:   "dist",
		LogLevel:    "debug",
	}))

	passes := map[string]map[string]string{
		"boarding": {
			"pass.json":   `{"formatVersion":1,"serialNumber":"B-1"}`,
			"icon.png":    "icon",
			"icon@2x.png": "icon",
			".DS_Store":   "finder",
		},
		"coupon": {
			"pass.json": `{"formatVersion":1,"serialNumber":"C-1"}`,
			"logo.png":  "logo",
		},
	}

	for name, files := range passes {
		require.NoError(t, os.Mkdir(name, 0o700))

		for file, content := range files {
			require.NoError(t, os.WriteFile(filepath.Join(name, file), []byte(content), 0o600))
		}
	}

	// Nested directories are not part of a pass.
	require.NoError(t, os.Mkdir(filepath.Join("boarding", "en.lproj"), 0o700))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout bytes.Buffer

	err := packager.Run(ctx, &packager.Options{
		ConfigPath: config.DefaultConfigFilename,
		PassDirs:   []string{"boarding", "coupon"},
		Stdout:     &stdout,
	})
	require.NoError(t, err)
	require.Equal(t,
		filepath.Join("dist", "boarding.pkpass")+"\n"+filepath.Join("dist", "coupon.pkpass")+"\n",
		stdout.String())

	wwdr, err := signing.WWDRCertificate()
	require.NoError(t, err)

	names, contents := unzip(t, filepath.Join("dist", "boarding.pkpass"))
	require.Equal(t, []string{"pass.json", "manifest.json", "signature", "icon.png", "icon@2x.png"}, names)
	require.Equal(t, []byte(passes["boarding"]["pass.json"]), contents["pass.json"])

	m, err := manifest.Parse(contents["manifest.json"])
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	_, ok := m.Lookup(".DS_Store")
	require.False(t, ok)

	p7, err := pkcs7.Parse(contents["signature"])
	require.NoError(t, err)
	require.Empty(t, p7.Content)
	require.Len(t, p7.Signers, 1)

	var hasWWDR bool

	for _, cert := range p7.Certificates {
		if cert.Equal(wwdr) {
			hasWWDR = true
		}
	}

	require.True(t, hasWWDR, "signature must carry the WWDR intermediate")

	p7.Content = contents["manifest.json"]
	require.NoError(t, p7.VerifyWithChain(id.Roots()))

	names, _ = unzip(t, filepath.Join("dist", "coupon.pkpass"))
	require.Equal(t, []string{"pass.json", "manifest.json", "signature", "logo.png"}, names)
}

// TestPack_StopsOnFirstFailure keeps archives written before the failing directory.
func TestPack_StopsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	id := signingtest.NewIdentity(t, "integration-secret")

	require.NoError(t, os.WriteFile("identity.p12", id.Bundle, 0o600))
	require.NoError(t, os.Mkdir("good", 0o700))
	require.NoError(t, os.WriteFile(filepath.Join("good", "pass.json"), []byte("{}"), 0o600))
	require.NoError(t, os.Mkdir("bad", 0o700))
	require.NoError(t, os.WriteFile(filepath.Join("bad", "icon.png"), []byte("icon"), 0o600))

	err := packager.Run(context.Background(), &packager.Options{
		ConfigPath:  config.DefaultConfigFilename,
		Certificate: "identity.p12",
		Password:    "integration-secret",
		PassDirs:    []string{"good", "bad", "good"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "package bad")

	_, err = os.Stat("good.pkpass")
	require.NoError(t, err)

	_, err = os.Stat("bad.pkpass")
	require.ErrorIs(t, err, os.ErrNotExist)
}
