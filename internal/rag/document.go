// Package rag implements the ingestion and chat pipeline: content
// acquisition, chunking, embedding, vector storage, FAQ generation, and
// retrieval-augmented answering, assembled as workflow nodes.
package rag

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the envelope passed from content acquisition to the
// embedding stage: where the text came from and the text itself. It
// travels as YAML so intermediate content stays diffable and loggable.
type Document struct {
	Source  string `yaml:"source"`
	Content string `yaml:"content"`
}

// EncodeDocument renders the document as YAML.
func EncodeDocument(d Document) (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(data), nil
}

// DecodeDocument parses a YAML document envelope. A missing source
// decodes as "unknown", matching how untagged content is attributed.
func DecodeDocument(s string) (Document, error) {
	var d Document
	if err := yaml.Unmarshal([]byte(s), &d); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	if d.Source == "" {
		d.Source = "unknown"
	}
	return d, nil
}
