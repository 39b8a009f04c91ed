package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
)

// BuildPDF returns a minimal, well-formed PDF with one page per entry in
// pages. Each page shows its text in Helvetica, one Tj per line.
// An empty pages list yields a document with zero pages.
func BuildPDF(pages ...string) []byte {
	var objects []string

	// 1: catalog, 2: page tree, 3: font; pages and their streams follow.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)

	for i, text := range pages {
		var content strings.Builder
		content.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
		for j, line := range strings.Split(text, "\n") {
			if j > 0 {
				content.WriteString("T*\n")
			}
			fmt.Fprintf(&content, "(%s) Tj\n", escapePDFString(line))
		}
		content.WriteString("ET")

		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// WritePDF writes a PDF built from pages into dir and returns its path.
func WritePDF(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()
	return WriteBytes(t, dir, name, BuildPDF(pages...))
}

// NewStateWithResult returns a session state holding a prior successful count.
func NewStateWithResult(count int, enc encoding.ID) *session.State {
	s := session.NewState()
	s.LastResult = &tokencount.Result{Count: count, Encoding: enc}
	s.Phase = session.PhaseResultDisplayed
	return s
}
