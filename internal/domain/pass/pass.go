package pass

const (
	// DescriptorFilename is the fixed name of the pass descriptor.
	DescriptorFilename = "pass.json"
	// ManifestFilename is the archive entry holding the digest manifest.
	ManifestFilename = "manifest.json"
	// SignatureFilename is the archive entry holding the detached signature.
	SignatureFilename = "signature"
	// FileExtension is appended to the pass directory name for the produced archive.
	FileExtension = ".pkpass"
)

// Asset is a single named file of a pass.
type Asset struct {
	// Name is the archive entry name (basename of the source file).
	Name string
	// Content holds the raw file bytes.
	Content []byte
}

// Pass holds the descriptor bytes and every auxiliary asset in collection order.
type Pass struct {
	// Descriptor is the raw content of pass.json.
	Descriptor []byte
	// Assets are the auxiliary files (images, localizations, etc.).
	Assets []Asset
}

// IsReservedName reports whether name collides with an entry generated by the packager.
func IsReservedName(name string) bool {
	switch name {
	case DescriptorFilename, ManifestFilename, SignatureFilename:
		return true
	default:
		return false
	}
}

// Names returns all entry names of the pass, descriptor first.
func (p *Pass) Names() []string {
	names := make([]string, 0, len(p.Assets)+1)
	names = append(names, DescriptorFilename)

	for _, asset := range p.Assets {
		names = append(names, asset.Name)
	}

	return names
}

// Clone returns a deep copy of the pass to avoid leaking internal references.
func (p *Pass) Clone() *Pass {
	assets := make([]Asset, len(p.Assets))
	for i, asset := range p.Assets {
		assets[i] = Asset{
			Name:    asset.Name,
			Content: append([]byte(nil), asset.Content...),
		}
	}

	return &Pass{
		Descriptor: append([]byte(nil), p.Descriptor...),
		Assets:     assets,
	}
}
