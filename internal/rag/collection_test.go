package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSessionID = "4f9f1a2b-0000-0000-0000-000000000000"

func TestCollectionName_Website(t *testing.T) {
	name := CollectionName(InputWebsite, "https://Docs.Example.com:8080/guide", testSessionID)
	assert.Equal(t, "web-docs-example-com-8080-4f9f1a2b", name)
}

func TestCollectionName_WebsiteBareHost(t *testing.T) {
	name := CollectionName(InputWebsite, "https://example.com", testSessionID)
	assert.Equal(t, "web-example-com-4f9f1a2b", name)
}

func TestCollectionName_PDF(t *testing.T) {
	name := CollectionName(InputPDF, "/tmp/upload-123/Annual Report (2024).pdf", testSessionID)
	assert.Equal(t, "pdf-annual-report--2024-4f9f1a2b", name)
}

func TestCollectionName_PDFSimple(t *testing.T) {
	name := CollectionName(InputPDF, "report.pdf", testSessionID)
	assert.Equal(t, "pdf-report-4f9f1a2b", name)
}

func TestCollectionName_UnknownType(t *testing.T) {
	name := CollectionName("none", "x", testSessionID)
	assert.Equal(t, "unknown-4f9f1a2b", name)
}
