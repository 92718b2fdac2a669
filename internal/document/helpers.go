package document

import (
	"io"
)

// ReadAll reads the full content of d.
func ReadAll(d *Document) ([]byte, error) {
	rc, err := d.OpenRead()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// ReadString reads the full content of d as a string.
func ReadString(d *Document) (string, error) {
	b, err := ReadAll(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Equal reports whether a and b are revisions of the same logical document.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.id == b.id
}

// DedupByID collapses documents sharing an ID. The result keeps the position
// of the first occurrence and the revision of the last.
func DedupByID(docs []*Document) []*Document {
	index := make(map[string]int, len(docs))
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if i, ok := index[d.id]; ok {
			out[i] = d
			continue
		}
		index[d.id] = len(out)
		out = append(out, d)
	}
	return out
}
