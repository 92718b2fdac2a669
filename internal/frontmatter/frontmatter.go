// Package frontmatter splits YAML front matter from document bodies and
// serializes metadata back to canonical YAML.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnterminated is returned when an opening delimiter has no closing one.
var ErrUnterminated = errors.New("front matter opening delimiter without closing delimiter")

// Block is a document split into front matter and body.
type Block struct {
	Fields map[string]any
	Body   []byte
	// Present reports whether the input started with a front matter block.
	Present bool
}

// Parse splits content. Input without a leading "---" line is returned as
// body only. CRLF line endings are accepted.
func Parse(content []byte) (Block, error) {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}
	delim := []byte("---" + nl)
	if !bytes.HasPrefix(content, delim) {
		return Block{Body: content}, nil
	}

	rest := content[len(delim):]
	var raw, body []byte
	switch {
	case bytes.HasPrefix(rest, delim):
		body = rest[len(delim):]
	default:
		end := bytes.Index(rest, []byte(nl+"---"+nl))
		if end < 0 {
			if !bytes.HasSuffix(rest, []byte(nl+"---")) {
				return Block{}, ErrUnterminated
			}
			end = len(rest) - len(nl) - 3
			raw, body = rest[:end+len(nl)], nil
			break
		}
		raw = rest[:end+len(nl)]
		body = rest[end+len(nl)+len(delim):]
	}

	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return Block{}, fmt.Errorf("parse front matter: %w", err)
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	return Block{Fields: fields, Body: body, Present: true}, nil
}

// Marshal serializes fields as YAML with keys sorted at every level.
// An empty map yields no bytes.
func Marshal(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return []byte{}, nil
	}
	var node yaml.Node
	if err := node.Encode(fields); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	sortKeys(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Canonical returns the YAML used for content fingerprints: sorted keys, LF
// newlines, excluded keys dropped and one trailing newline trimmed.
func Canonical(fields map[string]any, exclude ...string) (string, error) {
	filtered := make(map[string]any, len(fields))
	for k, v := range fields {
		filtered[k] = v
	}
	for _, k := range exclude {
		delete(filtered, k)
	}
	out, err := Marshal(filtered)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(out, []byte("\n"))), nil
}

// Join renders fields and body back into a document.
func Join(fields map[string]any, body []byte) ([]byte, error) {
	if len(fields) == 0 {
		return body, nil
	}
	raw, err := Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(raw)+len(body)+8)
	out = append(out, "---\n"...)
	out = append(out, raw...)
	out = append(out, "---\n"...)
	return append(out, body...), nil
}

func sortKeys(n *yaml.Node) {
	for _, c := range n.Content {
		sortKeys(c)
	}
	if n.Kind != yaml.MappingNode {
		return
	}
	pairs := len(n.Content) / 2
	// Insertion sort on key/value pairs keeps values attached to keys.
	for i := 1; i < pairs; i++ {
		for j := i; j > 0 && n.Content[2*j].Value < n.Content[2*(j-1)].Value; j-- {
			n.Content[2*j], n.Content[2*(j-1)] = n.Content[2*(j-1)], n.Content[2*j]
			n.Content[2*j+1], n.Content[2*(j-1)+1] = n.Content[2*(j-1)+1], n.Content[2*j+1]
		}
	}
}
