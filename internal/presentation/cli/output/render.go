package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
)

// DefaultPreviewRunes bounds the extracted text shown by RenderView.
const DefaultPreviewRunes = 500

// ViewOptions controls how RenderView presents a controller render.
type ViewOptions struct {
	ShowPreview  bool
	PreviewRunes int // 0 uses DefaultPreviewRunes, negative shows everything
}

// RenderView writes what a controller transition asks the host to display:
// the result first, then page warnings, the preview and notices.
// In JSON format the render is written as a single object.
func (f *Formatter) RenderView(v controller.Render, opts ViewOptions) error {
	if f.Format() == FormatJSON {
		if !opts.ShowPreview {
			v.Preview = ""
		}
		return f.JSON(v)
	}

	if v.HasResult() {
		label := f.Colorize(v.Result.Label()+":", StyleAccent)
		if err := f.Println("%s %s", label, f.Bold(strconv.Itoa(v.Result.Count))); err != nil {
			return err
		}
	}

	// Page warnings raised by this transition are already notices.
	announced := make(map[string]bool, len(v.Notices))
	for _, n := range v.Notices {
		announced[n.Message] = true
	}
	for _, w := range v.Warnings {
		msg := fmt.Sprintf("Page %d: %s", w.Page, w.Message)
		if announced[msg] {
			continue
		}
		if err := f.Warning("%s", msg); err != nil {
			return err
		}
	}

	if opts.ShowPreview && v.Preview != "" {
		if err := f.SubHeader("Extracted text"); err != nil {
			return err
		}
		if err := f.Println("%s", truncate(v.Preview, opts.PreviewRunes)); err != nil {
			return err
		}
	}

	for _, n := range v.Notices {
		var err error
		switch n.Kind {
		case controller.NoticeError:
			err = f.Error("%s", n.Message)
		case controller.NoticeWarning:
			err = f.Warning("%s", n.Message)
		default:
			err = f.Success("%s", n.Message)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, limit int) string {
	if limit == 0 {
		limit = DefaultPreviewRunes
	}
	if limit < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimRight(string(runes[:limit]), " \n") + "…"
}
