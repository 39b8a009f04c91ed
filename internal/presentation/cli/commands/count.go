package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/config"
	"github.com/jbctechsolutions/tokencalc/internal/presentation/cli/output"
)

type countOptions struct {
	file     string
	pdf      bool
	encoding string
	all      bool
	preview  bool
}

// CountResult is one row of `count --all` JSON output.
type CountResult struct {
	Encoding encoding.ID `json:"encoding"`
	Tokens   int         `json:"tokens"`
}

// NewCountCmd creates the count command.
func NewCountCmd() *cobra.Command {
	var opts countOptions

	cmd := &cobra.Command{
		Use:   "count [text...]",
		Short: "Count the tokens in text or a PDF document",
		Long: `Count the tokens in the given text.

The text is taken from the arguments, from a file with --file, or from
standard input when the only argument is "-". Files ending in .pdf (or any
file with --pdf) are read as PDF documents.`,
		Example: `  tokencalc count "Hello, world"
  tokencalc count -e p50k_base --file notes.txt
  tokencalc count --all --file report.pdf
  cat prompt.txt | tokencalc count -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read input from a file")
	cmd.Flags().BoolVar(&opts.pdf, "pdf", false, "treat --file as a PDF document regardless of extension")
	cmd.Flags().StringVarP(&opts.encoding, "encoding", "e", "", "encoding to count with (default from config)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "count under every supported encoding")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "show the text extracted from a PDF")

	return cmd
}

func runCount(cmd *cobra.Command, args []string, opts countOptions) error {
	app, err := requireApp()
	if err != nil {
		return err
	}
	if opts.file != "" && len(args) > 0 {
		return errors.New("provide either text arguments or --file, not both")
	}
	if opts.encoding != "" {
		if _, err := encoding.Parse(opts.encoding); err != nil {
			return err
		}
	}

	var input []controller.Event
	switch {
	case opts.file != "":
		input, err = fileEvents(opts.file, opts.pdf)
	case len(args) == 1 && args[0] == "-":
		var data []byte
		data, err = io.ReadAll(cmd.InOrStdin())
		input = []controller.Event{controller.TextEntered{Text: string(data)}}
	default:
		input = []controller.Event{controller.TextEntered{Text: strings.Join(args, " ")}}
	}
	if err != nil {
		return err
	}

	f := app.Formatter
	c := &counting{
		ctrl:     app.Container.Controller(),
		encoding: app.Config.DefaultEncoding(),
	}
	if opts.encoding != "" {
		c.encoding, _ = encoding.Parse(opts.encoding)
	}

	var spinner *output.Spinner
	if isPDF(input) && f.Format() != output.FormatJSON {
		spinner = output.NewSpinner("Extracting text",
			output.WithSpinnerWriter(cmd.ErrOrStderr()),
			output.WithSpinnerColor(output.IsColorSupported()),
		)
		spinner.Start()
	}
	prepared, prep := c.prepare(cmd.Context(), input)
	if spinner != nil {
		spinner.Stop()
	}

	if prep.HasProblems() && !prepared.HasInput() {
		if err := f.RenderView(prep, output.ViewOptions{}); err != nil {
			return err
		}
		return &ExitError{Code: 1}
	}

	view := output.ViewOptions{ShowPreview: opts.preview}
	if !opts.all {
		_, r := c.submit(cmd.Context(), prepared, c.encoding)
		r.Notices = append(prep.Notices, r.Notices...)
		if opts.preview {
			r.Preview = prepared.Text
		}
		if err := f.RenderView(r, view); err != nil {
			return err
		}
		if r.HasProblems() {
			return &ExitError{Code: 1}
		}
		return nil
	}

	var results []CountResult
	for _, id := range encoding.Supported() {
		_, r := c.submit(cmd.Context(), prepared, id)
		if r.Phase != session.PhaseResultDisplayed || !r.HasResult() {
			r.Notices = append(prep.Notices, r.Notices...)
			if err := f.RenderView(r, output.ViewOptions{}); err != nil {
				return err
			}
			return &ExitError{Code: 1}
		}
		results = append(results, CountResult{Encoding: id, Tokens: r.Result.Count})
	}
	return printAllCounts(f, results, prep, prepared, opts.preview)
}

// counting runs the controller for one input outside of any stored session.
type counting struct {
	ctrl     *controller.Controller
	encoding encoding.ID
}

// prepare loads the input into a fresh session without submitting it.
func (c *counting) prepare(ctx context.Context, input []controller.Event) (*session.State, controller.Render) {
	st := session.NewState()
	st.Encoding = c.encoding
	return c.ctrl.Apply(ctx, st, input...)
}

// submit counts the prepared draft under id. prepared is left untouched.
func (c *counting) submit(ctx context.Context, prepared *session.State, id encoding.ID) (*session.State, controller.Render) {
	return c.ctrl.Apply(ctx, prepared,
		controller.EncodingSelected{Encoding: id.String()},
		controller.Submitted{},
	)
}

func printAllCounts(f *output.Formatter, results []CountResult, prep controller.Render, prepared *session.State, preview bool) error {
	if f.Format() == output.FormatJSON {
		out := struct {
			Results []CountResult       `json:"results"`
			Notices []controller.Notice `json:"notices,omitempty"`
			Preview string              `json:"preview,omitempty"`
		}{Results: results, Notices: prep.Notices}
		if preview {
			out.Preview = prepared.Text
		}
		return f.JSON(out)
	}

	table := output.TableData{
		Columns: []output.TableColumn{
			{Header: "ENCODING"},
			{Header: "TOKENS", Align: output.AlignRight},
		},
	}
	for _, r := range results {
		table.Rows = append(table.Rows, []string{r.Encoding.String(), fmt.Sprint(r.Tokens)})
	}
	if err := f.Table(table); err != nil {
		return err
	}
	prep.Result = nil
	if preview {
		prep.Preview = prepared.Text
	}
	return f.RenderView(prep, output.ViewOptions{ShowPreview: preview})
}

// fileEvents reads path and returns the events that load it as input.
func fileEvents(path string, forcePDF bool) ([]controller.Event, error) {
	path = config.ExpandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if forcePDF || strings.EqualFold(filepath.Ext(path), ".pdf") {
		return []controller.Event{
			controller.ModeSelected{Mode: session.ModePDF},
			controller.FileSelected{Name: filepath.Base(path), Data: data},
		}, nil
	}
	return []controller.Event{controller.TextEntered{Text: string(data)}}, nil
}

func isPDF(events []controller.Event) bool {
	for _, ev := range events {
		if m, ok := ev.(controller.ModeSelected); ok && m.Mode == session.ModePDF {
			return true
		}
	}
	return false
}
