package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"spccvault/internal"
)

// ExtractText pulls the text layer out of one document. It never returns an
// error: unreadable or corrupt files come back as status ERROR with a
// human-readable detail, and an empty text layer is a valid OK result that
// will simply fail to match downstream.
//
// A profile biases extraction toward the pages and anchor phrases where the
// identifying fields live. A hint that yields nothing usable falls back to
// whole-document text rather than failing the document.
func ExtractText(doc internal.RawDocument, profile *internal.ExtractionProfile) internal.ExtractionResult {
	content, err := os.ReadFile(doc.Path)
	if err != nil {
		return extractionError(doc, fmt.Sprintf("read file: %v", err))
	}

	full, hinted, err := pdfText(content, profile)
	if err != nil {
		return extractionError(doc, fmt.Sprintf("parse pdf: %v", err))
	}

	text := hinted
	if !hintUsable(hinted, profile) {
		text = full
	}

	result := internal.ExtractionResult{
		Doc:    doc,
		Text:   text,
		Status: internal.ExtractionOK,
	}
	if profile != nil {
		result.ExtractedDate = FindDateNear(text, profile.DateAnchors)
		if result.ExtractedDate == nil {
			result.ExtractedDate = FindDateNear(full, profile.DateAnchors)
		}
	}
	return result
}

// pdfText returns the whole-document text and, when a page window is
// configured, the text of just that window. The pdf library panics on some
// malformed files, so the recover here is part of the extraction contract.
func pdfText(content []byte, profile *internal.ExtractionProfile) (full string, hinted string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", "", err
	}

	pageStart, pageEnd := 0, 0
	if profile != nil {
		pageStart, pageEnd = profile.PageStart, profile.PageEnd
	}

	var fullBuf, hintedBuf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		fullBuf.WriteString(text)
		fullBuf.WriteString("\n")
		if pageStart > 0 && i >= pageStart && (pageEnd == 0 || i <= pageEnd) {
			hintedBuf.WriteString(text)
			hintedBuf.WriteString("\n")
		}
	}

	return fullBuf.String(), hintedBuf.String(), nil
}

// hintUsable decides whether the hinted window produced something worth
// keeping. With anchors configured, at least one must actually appear in the
// window; otherwise the hint missed and the whole document is safer.
func hintUsable(hinted string, profile *internal.ExtractionProfile) bool {
	if profile == nil || profile.PageStart <= 0 {
		return false
	}
	if strings.TrimSpace(hinted) == "" {
		return false
	}
	if len(profile.Anchors) == 0 {
		return true
	}
	lower := strings.ToLower(hinted)
	for _, anchor := range profile.Anchors {
		a := strings.ToLower(strings.TrimSpace(anchor))
		if a != "" && strings.Contains(lower, a) {
			return true
		}
	}
	return false
}

func extractionError(doc internal.RawDocument, detail string) internal.ExtractionResult {
	return internal.ExtractionResult{
		Doc:       doc,
		Status:    internal.ExtractionError,
		ErrDetail: detail,
	}
}
