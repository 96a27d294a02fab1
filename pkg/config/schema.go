package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchemaViolation is returned when a config file does not match the schema.
var ErrSchemaViolation = errors.New("config file does not match schema")

//go:embed schema/config.schema.json
var schemaJSON []byte

// Schema returns the embedded JSON schema for config files.
func Schema() []byte {
	return schemaJSON
}

// ValidateFile checks a JSON or YAML config file against the embedded
// schema. Other formats are left to viper.
func ValidateFile(path string) error {
	var decode func([]byte, any) error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		decode = json.Unmarshal
	case ".yaml", ".yml":
		decode = yaml.Unmarshal
	default:
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var doc any

	err = decode(data, &doc)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	// An empty YAML document is a valid empty config.
	if doc == nil {
		doc = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate config file %s: %w", path, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s: %s", ErrSchemaViolation, path, strings.Join(problems, "; "))
}
