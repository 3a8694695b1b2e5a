// Package parser splits and emits YAML front matter for generated posts.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Result holds the output of splitting a post file.
type Result struct {
	Frontmatter map[string]any
	// Rest is everything after the closing delimiter, byte for byte.
	Rest string
}

// Split separates leading front matter from the rest of a post. ok is false
// when the data does not open with a delimited block. Invalid YAML is
// reported as an error so callers can decide whether to skip the file.
func Split(data []byte) (res *Result, ok bool, err error) {
	if !bytes.HasPrefix(data, []byte(delim+"\n")) {
		return nil, false, nil
	}
	rest := data[len(delim)+1:]

	// The closing delimiter may immediately follow the opening one.
	var block, after []byte
	switch {
	case bytes.HasPrefix(rest, []byte(delim)):
		block, after = nil, rest[len(delim):]
	default:
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			return nil, false, nil
		}
		block = rest[:idx+1]
		after = rest[idx+1+len(delim):]
	}

	fm, err := decodeMapping(block)
	if err != nil {
		return nil, true, fmt.Errorf("parser: front matter: %w", err)
	}
	return &Result{Frontmatter: fm, Rest: string(after)}, true, nil
}

// ParseMetadata decodes an inline metadata block. Malformed or non-mapping
// input yields an empty map, never an error.
func ParseMetadata(block string) map[string]any {
	if strings.TrimSpace(block) == "" {
		return map[string]any{}
	}
	out, err := decodeMapping([]byte(block))
	if err != nil {
		return map[string]any{}
	}
	return out
}

// Timestamp is an unquoted YAML timestamp, kept as written.
type Timestamp string

// MarshalYAML emits the timestamp plain, exactly as it was read.
func (t Timestamp) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: string(t)}, nil
}

const maxDepth = 64

// decodeMapping decodes a YAML mapping into plain Go values. Unquoted
// timestamps become Timestamp instead of time.Time.
func decodeMapping(data []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	v, err := nodeValue(&doc, 0)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
}

func nodeValue(n *yaml.Node, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting deeper than %d", maxDepth)
	}
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0], depth+1)
	case yaml.AliasNode:
		return nodeValue(n.Alias, depth+1)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		var merged []map[string]any
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, val := n.Content[i], n.Content[i+1]
			v, err := nodeValue(val, depth+1)
			if err != nil {
				return nil, err
			}
			if k.ShortTag() == "!!merge" {
				merged = append(merged, mergeSources(v)...)
				continue
			}
			out[k.Value] = v
		}
		// Explicit keys win over merged ones.
		for _, m := range merged {
			for k, v := range m {
				if _, ok := out[k]; !ok {
					out[k] = v
				}
			}
		}
		return out, nil
	default:
		if n.ShortTag() == "!!timestamp" {
			return Timestamp(n.Value), nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func mergeSources(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		var out []map[string]any
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// EmitOptions control front-matter serialization.
type EmitOptions struct {
	// NoAliases forces every value to be written in full, even when two
	// keys share the same backing slice or map.
	NoAliases bool
	Indent    int
}

// Marshal serializes fm as YAML with keys in sorted order.
func Marshal(fm map[string]any, opts EmitOptions) (string, error) {
	if opts.NoAliases {
		fm = deepCopy(fm).(map[string]any)
	}
	indent := opts.Indent
	if indent <= 0 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("parser: encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("parser: encode front matter: %w", err)
	}
	return buf.String(), nil
}

// Compose joins a front-matter mapping and the text that follows it.
func Compose(fm map[string]any, rest string) (string, error) {
	y, err := Marshal(fm, EmitOptions{NoAliases: true})
	if err != nil {
		return "", err
	}
	return delim + "\n" + y + delim + rest, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = deepCopy(val)
		}
		return s
	case []string:
		return append([]string{}, t...)
	default:
		return v
	}
}

// StringList normalizes a decoded YAML value into a list of strings.
// Scalars become single-element lists; nil becomes an empty list.
func StringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}
