package vocab

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tagclass/internal/logging"
)

// DecodeSource reads a YAML mapping of tag name to record fields, keeping
// document order.
func DecodeSource(name string, r io.Reader) (Source, error) {
	src := Source{Name: name}
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return src, nil
		}
		return src, fmt.Errorf("failed to parse vocabulary %s: %w", name, err)
	}
	if len(doc.Content) == 0 {
		return src, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return src, fmt.Errorf("vocabulary %s: expected a mapping at line %d", name, root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var raw struct {
			Root   string `yaml:"root"`
			Path   string `yaml:"path"`
			Alias  string `yaml:"alias"`
			State  string `yaml:"state"`
			Remark string `yaml:"remark"`
		}
		if err := val.Decode(&raw); err != nil {
			return src, fmt.Errorf("vocabulary %s: tag %q: %w", name, key.Value, err)
		}
		state, err := ParseState(raw.State)
		if err != nil {
			return src, &LoadError{Source: name, Tags: []string{key.Value}, Err: err}
		}
		src.Entries = append(src.Entries, Entry{
			Name: key.Value,
			Fields: Fields{
				Root:   Root(raw.Root),
				Path:   raw.Path,
				Alias:  raw.Alias,
				State:  state,
				Remark: raw.Remark,
			},
		})
	}
	return src, nil
}

// ReadSource reads one vocabulary file.
func ReadSource(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{Name: path}, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer f.Close()
	return DecodeSource(path, f)
}

// LoadFiles loads vocabulary files merged in order. Missing files are an error.
func LoadFiles(paths []string, ignorePending bool) (*Vocabulary, error) {
	timer := logging.StartTimer(logging.CategoryVocab, "LoadFiles")
	defer timer.Stop()

	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		src, err := ReadSource(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	v, err := Load(sources, ignorePending)
	if err != nil {
		return nil, err
	}
	logging.Vocab("loaded %d files: %s", len(paths), v)
	return v, nil
}

// Encode writes the persisted view (see Select) as YAML. Only non-empty
// fields among root, path, alias, state and remark are written.
func (v *Vocabulary) Encode(w io.Writer, roots []Root, sorted bool) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, r := range v.Select(roots, sorted) {
		val := &yaml.Node{Kind: yaml.MappingNode}
		for _, kv := range [][2]string{
			{"root", string(r.root)},
			{"path", r.path},
			{"alias", r.alias},
			{"state", string(r.state)},
			{"remark", r.remark},
		} {
			if kv[1] == "" {
				continue
			}
			val.Content = append(val.Content,
				scalar(kv[0]),
				scalar(kv[1]),
			)
		}
		doc.Content = append(doc.Content,
			scalar(r.name),
			val,
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	return enc.Close()
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Save writes the persisted view to path with an atomic whole-file rewrite.
func (v *Vocabulary) Save(path string, roots []Root, sorted bool) error {
	var buf bytes.Buffer
	if err := v.Encode(&buf, roots, sorted); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create vocabulary directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace vocabulary: %w", err)
	}
	logging.VocabDebug("saved %s (roots=%v sorted=%v)", path, roots, sorted)
	return nil
}
