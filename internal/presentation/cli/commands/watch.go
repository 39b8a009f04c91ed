package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/watch"
	"github.com/jbctechsolutions/tokencalc/internal/presentation/cli/output"
)

type watchOptions struct {
	encoding string
	pdf      bool
}

// WatchReport is the JSON output for one recount.
type WatchReport struct {
	File      string            `json:"file"`
	Event     watch.EventType   `json:"event,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Render    controller.Render `json:"render"`
}

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Recount files whenever they change",
		Long: `Count the tokens in each file, then count again every time a file is
written or recreated. Stop with Ctrl+C.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.encoding, "encoding", "e", "", "encoding to count with (default from config)")
	cmd.Flags().BoolVar(&opts.pdf, "pdf", false, "treat every file as a PDF document")

	return cmd
}

func runWatch(cmd *cobra.Command, files []string, opts watchOptions) error {
	app, err := requireApp()
	if err != nil {
		return err
	}

	enc := app.Config.DefaultEncoding()
	if opts.encoding != "" {
		if enc, err = encoding.Parse(opts.encoding); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	w, err := watch.NewWatcher(watch.Config{Debounce: app.Config.Watch.Debounce})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(ctx, files...); err != nil {
		return err
	}

	wc := &watchCounter{
		counting:  counting{ctrl: app.Container.Controller(), encoding: enc},
		formatter: app.Formatter,
		forcePDF:  opts.pdf,
	}
	for _, f := range files {
		wc.recount(ctx, f, "")
	}
	if app.Formatter.Format() != output.FormatJSON {
		app.Formatter.Info("Watching %d file(s) for changes. Press Ctrl+C to stop.", len(files))
	}

	logger := app.Container.Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Type != watch.EventCreate && ev.Type != watch.EventWrite {
				logger.DebugContext(ctx, "ignoring file event", "path", ev.Path, "type", string(ev.Type))
				continue
			}
			wc.recount(ctx, ev.Path, ev.Type)
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "file watcher error", "error", err.Error())
		}
	}
}

// watchCounter counts one file per change and prints the outcome.
type watchCounter struct {
	counting
	formatter *output.Formatter
	forcePDF  bool
}

func (wc *watchCounter) recount(ctx context.Context, path string, evType watch.EventType) {
	r := wc.count(ctx, path)

	f := wc.formatter
	if f.Format() == output.FormatJSON {
		_ = f.JSON(WatchReport{File: path, Event: evType, Timestamp: time.Now().UTC(), Render: r})
		return
	}
	f.SubHeader(path)
	_ = f.RenderView(r, output.ViewOptions{})
}

// count reads path and runs it through the controller. Read failures are
// reported as error notices like any other problem.
func (wc *watchCounter) count(ctx context.Context, path string) controller.Render {
	input, err := fileEvents(path, wc.forcePDF)
	if err != nil {
		return controller.Render{
			Encoding: wc.encoding,
			Notices:  []controller.Notice{{Kind: controller.NoticeError, Message: err.Error()}},
		}
	}

	prepared, prep := wc.prepare(ctx, input)
	_, r := wc.submit(ctx, prepared, wc.encoding)
	r.Notices = append(prep.Notices, r.Notices...)
	return r
}
