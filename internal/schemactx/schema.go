package schemactx

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema is the warehouse description fed to the model. The raw text goes
// into the prompt verbatim; the parsed form only exists to catch a broken
// file at startup instead of at the first query.
type Schema struct {
	Text   string
	Tables int
}

type schemaFile struct {
	Tables []struct {
		Name    string `yaml:"name"`
		Columns []struct {
			Name string `yaml:"name"`
			Type string `yaml:"type"`
		} `yaml:"columns"`
	} `yaml:"tables"`
}

// LoadFile reads and validates the schema description. It is called once per
// process, at startup.
func LoadFile(path string) (Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema file: %w", err)
	}

	var parsed schemaFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Schema{}, fmt.Errorf("parse schema file %q: %w", path, err)
	}
	if len(parsed.Tables) == 0 {
		return Schema{}, fmt.Errorf("schema file %q declares no tables", path)
	}
	for _, table := range parsed.Tables {
		if strings.TrimSpace(table.Name) == "" {
			return Schema{}, fmt.Errorf("schema file %q has a table without a name", path)
		}
		if len(table.Columns) == 0 {
			return Schema{}, fmt.Errorf("schema table %q declares no columns", table.Name)
		}
	}

	return Schema{Text: string(raw), Tables: len(parsed.Tables)}, nil
}
