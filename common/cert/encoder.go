package cert

import (
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/ddr4869/bftconfig/common/logger"
	"github.com/pkg/errors"
)

// Encoder turns a credential file into the text embedded in a channel configuration.
type Encoder interface {
	Encode(path string) (string, error)
}

// FileEncoder base64-encodes the raw bytes of a credential file, PEM armor included,
// which is how identities and TLS certificates appear in the consenter mapping.
type FileEncoder struct{}

// Encode reads path and returns its base64 encoding. When path is a directory, as
// with an MSP signcerts folder, the single file inside it is used.
func (FileEncoder) Encode(path string) (string, error) {
	data, err := LoadFile(path)
	if err != nil {
		return "", err
	}

	if block, _ := pem.Decode(data); block == nil {
		logger.Warnf("%s does not contain a PEM block, encoding raw content", path)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// LoadFile reads a non-empty credential from path, which may be a file or a
// directory holding exactly one file.
func LoadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("credential path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	var data []byte
	if info.IsDir() {
		data, err = LoadSingleFileFromDir(path)
	} else {
		data, err = os.ReadFile(path)
		err = errors.Wrapf(err, "failed to read file %s", path)
	}
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.Errorf("credential file %s is empty", path)
	}
	return data, nil
}

// LoadSingleFileFromDir reads the only regular file of dirPath.
func LoadSingleFileFromDir(dirPath string) ([]byte, error) {
	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dirPath)
	}

	var fileName string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if fileName != "" {
			return nil, errors.Errorf("more than one file found in directory %s", dirPath)
		}
		fileName = file.Name()
	}

	if fileName == "" {
		return nil, errors.Errorf("no files found in directory %s", dirPath)
	}

	filePath := filepath.Join(dirPath, fileName)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", filePath)
	}

	return data, nil
}
