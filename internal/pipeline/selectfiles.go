package pipeline

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"spccvault/internal"
)

// Selection is the outcome of validating a picked file set. Rejected files
// carry a visible per-file reason; nothing is silently dropped.
type Selection struct {
	Accepted []internal.RawDocument
	Rejected []internal.RejectedFile
}

// ValidateSelection checks every picked file before any processing starts:
// media type by extension and magic bytes, a per-file size ceiling, and a
// batch file-count ceiling. Files past the count ceiling are rejected citing
// it; input order is preserved so the outcome is deterministic.
func ValidateSelection(paths []string, maxFiles int, maxFileSizeMB int64) Selection {
	sel := Selection{}
	maxBytes := maxFileSizeMB * 1024 * 1024

	for _, path := range paths {
		name := filepath.Base(path)

		if len(sel.Accepted) >= maxFiles {
			sel.Rejected = append(sel.Rejected, internal.RejectedFile{
				Name:   name,
				Reason: fmt.Sprintf("batch limit of %d files reached", maxFiles),
			})
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			sel.Rejected = append(sel.Rejected, internal.RejectedFile{Name: name, Reason: "file is not readable"})
			continue
		}
		if info.IsDir() {
			sel.Rejected = append(sel.Rejected, internal.RejectedFile{Name: name, Reason: "not a file"})
			continue
		}
		if info.Size() > maxBytes {
			sel.Rejected = append(sel.Rejected, internal.RejectedFile{
				Name:   name,
				Reason: fmt.Sprintf("exceeds %d MB size limit", maxFileSizeMB),
			})
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			sel.Rejected = append(sel.Rejected, internal.RejectedFile{Name: name, Reason: "not a PDF document"})
			continue
		}
		if !sniffPDF(path) {
			sel.Rejected = append(sel.Rejected, internal.RejectedFile{Name: name, Reason: "content is not a PDF"})
			continue
		}

		sel.Accepted = append(sel.Accepted, internal.RawDocument{
			Name:   name,
			Path:   path,
			Size:   info.Size(),
			Source: internal.SourceFilePicker,
		})
	}

	return sel
}

// sniffPDF checks magic bytes; the extension alone is not trusted.
func sniffPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	return http.DetectContentType(buf[:n]) == "application/pdf"
}
