package modules

import (
	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/frontmatter"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Keys that never take part in the content fingerprint.
var fingerprintExcluded = []string{mdfp.FingerprintField, "lastmod", "uid", "aliases"}

// Fingerprint stores a stable content fingerprint computed from the
// document's own metadata (settings excluded) and its body.
type Fingerprint struct {
	Key string `yaml:"key"`
}

func newFingerprint(args *yaml.Node) (pipeline.Module, error) {
	m := &Fingerprint{Key: mdfp.FingerprintField}
	return m, decode(args, m)
}

// Execute implements pipeline.Module.
func (m *Fingerprint) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *Fingerprint) ExecuteDocument(_ *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	fp, err := ComputeFingerprint(d)
	if err != nil {
		return nil, err
	}
	nd, err := d.Derive(document.WithMetadata(map[string]any{m.Key: fp}))
	if err != nil {
		return nil, err
	}
	return []*document.Document{nd}, nil
}

// ComputeFingerprint hashes the canonical YAML of d's metadata together with
// its body.
func ComputeFingerprint(d *document.Document) (string, error) {
	fields, err := d.Metadata().WithoutSettings().ToMap()
	if err != nil {
		return "", err
	}
	canonical, err := frontmatter.Canonical(plainValues(fields), fingerprintExcluded...)
	if err != nil {
		return "", err
	}
	body, err := document.ReadString(d)
	if err != nil {
		return "", err
	}
	return mdfp.CalculateFingerprintFromParts(canonical, body), nil
}

// plainValues drops values YAML cannot represent.
func plainValues(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v.(type) {
		case nil, string, bool, int, int64, uint64, float64, []any, []string, map[string]any:
			out[k] = v
		}
	}
	return out
}
