package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Source is an IDL document read from disk. JSON holds the document
// re-encoded as JSON whatever its original format, so it can be stored and
// recompiled with CompileJSON.
type Source struct {
	Path string
	Doc  RawDocument
	JSON []byte
}

// LoadFile reads an IDL document. The format is chosen by extension:
// .yaml and .yml are YAML, .cue is CUE, anything else is JSON.
func LoadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read IDL: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes is LoadFile for data already in memory. path only selects the
// format and labels errors.
func LoadBytes(path string, data []byte) (*Source, error) {
	var (
		jsonData []byte
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		jsonData, err = yamlToJSON(data)
	case ".cue":
		jsonData, err = cueToJSON(path, data)
	default:
		jsonData = data
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc, err := ParseJSON(jsonData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Source{Path: path, Doc: doc, JSON: jsonData}, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse IDL YAML: %w", err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("parse IDL YAML: document is not a mapping")
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse IDL YAML: %w", err)
	}
	return out, nil
}

func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile IDL CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("IDL CUE is not concrete: %w", err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export IDL CUE: %w", err)
	}
	return out, nil
}
