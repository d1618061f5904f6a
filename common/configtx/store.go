package configtx

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of a configuration document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFromPath picks the document format from the file extension. Anything
// other than .yaml or .yml is treated as JSON, the output of configtxlator.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Unmarshal decodes a whole document. The top-level value must be an object.
func Unmarshal(data []byte, format Format) (*Document, error) {
	var raw interface{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedConfig, "failed to parse %s document: %s", format, err)
	}

	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Wrap(ErrMalformedConfig, "top-level value must be an object")
	}
	return NewDocument(m)
}

// Marshal encodes a whole document.
func Marshal(doc *Document, format Format, indent bool) ([]byte, error) {
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(normalizeNumbers(doc.AsMap()))
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal yaml document")
		}
		return data, nil
	default:
		var data []byte
		var err error
		if indent {
			data, err = json.MarshalIndent(doc.AsMap(), "", "  ")
		} else {
			data, err = json.Marshal(doc.AsMap())
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal json document")
		}
		return data, nil
	}
}

// normalizeNumbers turns integral float64 values into int64 so that the yaml
// encoder does not print them in exponent form.
func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	default:
		return v
	}
}

// FileStore loads and persists whole documents on the local filesystem.
type FileStore struct {
	// Indent pretty-prints JSON output.
	Indent bool
}

// Load reads the document at path in full.
func (s *FileStore) Load(path string) (*Document, error) {
	if path == "" {
		return nil, errors.New("config path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	doc, err := Unmarshal(data, FormatFromPath(path))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load %s", path)
	}
	logger.Debugf("Loaded config %s (%d bytes)", path, len(data))
	return doc, nil
}

// Save writes doc to path. The file is replaced atomically: a reader sees either
// the previous content or the complete new document.
func (s *FileStore) Save(path string, doc *Document) error {
	if path == "" {
		return errors.New("output path cannot be empty")
	}

	data, err := Marshal(doc, FormatFromPath(path), s.Indent)
	if err != nil {
		return err
	}

	if err := writeFileAtomically(path, data); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	logger.Debugf("Saved config %s (%d bytes)", path, len(data))
	return nil
}

func writeFileAtomically(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
