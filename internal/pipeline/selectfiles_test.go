package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spccvault/internal"
)

func writePDF(t *testing.T, dir, name string, size int) string {
	t.Helper()
	content := append([]byte("%PDF-1.4\n"), make([]byte, size)...)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestValidateSelectionAcceptsValidPDFs(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePDF(t, dir, "a.pdf", 100),
		writePDF(t, dir, "B.PDF", 100),
	}

	sel := ValidateSelection(paths, 50, 10)

	if len(sel.Rejected) != 0 {
		t.Fatalf("rejected = %+v", sel.Rejected)
	}
	if len(sel.Accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(sel.Accepted))
	}
	if sel.Accepted[0].Name != "a.pdf" || sel.Accepted[0].Source != internal.SourceFilePicker {
		t.Fatalf("accepted[0] = %+v", sel.Accepted[0])
	}
	if sel.Accepted[0].Size <= 0 {
		t.Fatal("size not recorded")
	}
}

func TestValidateSelectionRejectsWithReasons(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	disguised := filepath.Join(dir, "image.pdf")
	if err := os.WriteFile(disguised, []byte("GIF89a not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	big := writePDF(t, dir, "huge.pdf", 2*1024*1024)

	sel := ValidateSelection([]string{
		txt,
		disguised,
		big,
		filepath.Join(dir, "missing.pdf"),
		dir,
	}, 50, 1)

	if len(sel.Accepted) != 0 {
		t.Fatalf("accepted = %+v", sel.Accepted)
	}
	wantReasons := map[string]string{
		"notes.txt":   "not a PDF document",
		"image.pdf":   "content is not a PDF",
		"huge.pdf":    "exceeds 1 MB size limit",
		"missing.pdf": "file is not readable",
	}
	for _, rej := range sel.Rejected {
		want, ok := wantReasons[rej.Name]
		if !ok {
			continue
		}
		if rej.Reason != want {
			t.Fatalf("%s reason = %q, want %q", rej.Name, rej.Reason, want)
		}
		delete(wantReasons, rej.Name)
	}
	if len(wantReasons) != 0 {
		t.Fatalf("missing rejections: %v", wantReasons)
	}
	if len(sel.Rejected) != 5 {
		t.Fatalf("rejected = %d, want 5", len(sel.Rejected))
	}
}

func TestValidateSelectionEnforcesBatchCeiling(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 51; i++ {
		paths = append(paths, writePDF(t, dir, fmt.Sprintf("doc-%02d.pdf", i), 10))
	}

	sel := ValidateSelection(paths, 50, 10)

	if len(sel.Accepted) != 50 {
		t.Fatalf("accepted = %d, want 50", len(sel.Accepted))
	}
	if len(sel.Rejected) != 1 {
		t.Fatalf("rejected = %d, want 1", len(sel.Rejected))
	}
	rej := sel.Rejected[0]
	if rej.Name != "doc-50.pdf" {
		t.Fatalf("rejected %q, want the 51st file", rej.Name)
	}
	if !strings.Contains(rej.Reason, "batch limit of 50") {
		t.Fatalf("reason = %q", rej.Reason)
	}
	// Input order survives validation.
	for i, doc := range sel.Accepted {
		if doc.Name != fmt.Sprintf("doc-%02d.pdf", i) {
			t.Fatalf("accepted[%d] = %s", i, doc.Name)
		}
	}
}

func TestValidateSelectionInvalidFileDoesNotConsumeCapacity(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	sel := ValidateSelection([]string{
		txt,
		writePDF(t, dir, "a.pdf", 10),
		writePDF(t, dir, "b.pdf", 10),
	}, 2, 10)

	if len(sel.Accepted) != 2 {
		t.Fatalf("accepted = %d, want 2 (rejected file must not count toward the ceiling)", len(sel.Accepted))
	}
}
