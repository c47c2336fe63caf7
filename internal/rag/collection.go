package rag

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Input types accepted by the ingestion flow.
const (
	InputWebsite = "website"
	InputPDF     = "pdf"
	InputNone    = "none"
)

// CollectionName derives the Qdrant collection for an ingested source.
// The session id's first uuid segment scopes collections per session:
//
//	website  https://docs.example.com  ->  web-docs-example-com-<prefix>
//	pdf      report.Q3.pdf             ->  pdf-report-<prefix>
func CollectionName(inputType, source, sessionID string) string {
	prefix, _, _ := strings.Cut(sessionID, "-")

	var name string
	switch inputType {
	case InputWebsite:
		host := source
		if u, err := url.Parse(source); err == nil && u.Host != "" {
			host = u.Host
		}
		host = strings.NewReplacer(".", "-", ":", "-").Replace(host)
		name = "web-" + host + "-" + prefix
	case InputPDF:
		base, _, _ := strings.Cut(filepath.Base(source), ".")
		var b strings.Builder
		for _, r := range base {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') {
				b.WriteRune(r)
			} else {
				b.WriteRune('-')
			}
		}
		name = "pdf-" + strings.Trim(b.String(), "-") + "-" + prefix
	default:
		name = "unknown-" + prefix
	}
	return strings.ToLower(name)
}
