package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/storage"
	"github.com/jbctechsolutions/tokencalc/internal/presentation/cli/output"
)

const interactiveHelp = `Type text to add it to the draft. Commands:
  /mode text|pdf     switch the input method
  /file <path>       load a PDF (PDF mode)
  /encoding <name>   choose the encoding
  /encodings         list the supported encodings
  /submit            count the tokens in the draft
  /clear             discard the draft
  /status            show the session state
  /help              show this help
  /exit              leave the session`

// NewInteractiveCmd creates the interactive command.
func NewInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"repl", "i"},
		Short:   "Start an interactive token counting session",
		Long: `Start an interactive session. Lines you type build up a draft which
is counted with /submit. The last result stays on screen until the next
successful count.`,
		Args: cobra.NoArgs,
		RunE: runInteractive,
	}
}

func runInteractive(cmd *cobra.Command, args []string) error {
	app, err := requireApp()
	if err != nil {
		return err
	}

	store := storage.NewMemoryStore(app.Config.Session.TTL)
	repl := newInteractiveSession(app.Container.Controller(), store, app.Formatter, app.Config.DefaultEncoding())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	f := app.Formatter
	f.Header("Token Calculator")
	f.Item("Session", repl.name)
	f.Item("Mode", session.ModeText.Label())
	f.Item("Encoding", repl.defaultEnc.String())
	f.Println("")
	f.Info("Type your text and /submit to count it. Type /help for commands.")
	f.Println("")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          repl.prompt(),
		AutoComplete:    interactiveCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("could not create readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			break
		}

		exit, err := repl.handleLine(ctx, line)
		if err != nil {
			f.Error("%s", err.Error())
		}
		if exit {
			break
		}
		rl.SetPrompt(repl.prompt())
	}

	f.Info("Session ended. Goodbye!")
	return nil
}

func interactiveCompleter() *readline.PrefixCompleter {
	encs := make([]readline.PrefixCompleterInterface, 0, len(encoding.Supported()))
	for _, name := range encoding.Names() {
		encs = append(encs, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("/mode", readline.PcItem("text"), readline.PcItem("pdf")),
		readline.PcItem("/file"),
		readline.PcItem("/encoding", encs...),
		readline.PcItem("/encodings"),
		readline.PcItem("/submit"),
		readline.PcItem("/clear"),
		readline.PcItem("/status"),
		readline.PcItem("/help"),
		readline.PcItem("/exit"),
	)
}

// interactiveSession is the terminal host for one controller session.
type interactiveSession struct {
	ctrl       *controller.Controller
	store      ports.SessionStore
	formatter  *output.Formatter
	id         string
	name       string
	defaultEnc encoding.ID

	// current is the last saved state, kept for the prompt.
	current *session.State
}

func newInteractiveSession(ctrl *controller.Controller, store ports.SessionStore, f *output.Formatter, def encoding.ID) *interactiveSession {
	st := session.NewState()
	st.Encoding = def
	return &interactiveSession{
		ctrl:       ctrl,
		store:      store,
		formatter:  f,
		id:         uuid.NewString(),
		name:       session.GenerateName(),
		defaultEnc: def,
		current:    st,
	}
}

func (s *interactiveSession) prompt() string {
	st := s.current
	mode := string(st.Mode)
	if st.HasInput() {
		return fmt.Sprintf("[%s %s, %d chars]> ", mode, st.Encoding, len([]rune(st.Text)))
	}
	return fmt.Sprintf("[%s %s]> ", mode, st.Encoding)
}

// handleLine processes one line of input and reports whether to exit.
func (s *interactiveSession) handleLine(ctx context.Context, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false, nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		return false, s.appendText(ctx, line)
	}

	name, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/exit", "/quit", "/q":
		return true, nil
	case "/help", "/?":
		s.formatter.Println("%s", interactiveHelp)
	case "/mode":
		if arg == "" {
			return false, errors.New("usage: /mode text|pdf")
		}
		return false, s.apply(ctx, false, controller.ModeSelected{Mode: session.InputMode(strings.ToLower(arg))})
	case "/file":
		if arg == "" {
			return false, errors.New("usage: /file <path>")
		}
		events, err := fileEvents(arg, true)
		if err != nil {
			return false, err
		}
		// Only the upload itself; the mode is the user's choice.
		return false, s.apply(ctx, true, events[len(events)-1])
	case "/encoding":
		if arg == "" {
			return false, errors.New("usage: /encoding <name>")
		}
		return false, s.apply(ctx, false, controller.EncodingSelected{Encoding: arg})
	case "/encodings":
		return false, printEncodings(s.formatter, s.current.Encoding)
	case "/submit":
		return false, s.submit(ctx)
	case "/clear":
		if s.current.Mode == session.ModePDF {
			return false, s.apply(ctx, false, controller.FileSelected{})
		}
		return false, s.apply(ctx, false, controller.TextEntered{})
	case "/status":
		return false, s.status(ctx)
	default:
		return false, fmt.Errorf("unknown command %s (type /help for commands)", name)
	}
	return false, nil
}

// appendText adds line to the draft as a new line.
func (s *interactiveSession) appendText(ctx context.Context, line string) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	text := line
	if st.Mode == session.ModeText && st.Text != "" {
		text = st.Text + "\n" + line
	}
	return s.apply(ctx, false, controller.TextEntered{Text: text})
}

// apply runs events and shows their notices. The result is only repeated
// by /submit and /status.
func (s *interactiveSession) apply(ctx context.Context, preview bool, events ...controller.Event) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	next, r := s.ctrl.Apply(ctx, st, events...)
	if err := s.save(ctx, next); err != nil {
		return err
	}
	r.Result = nil
	return s.formatter.RenderView(r, output.ViewOptions{ShowPreview: preview})
}

func (s *interactiveSession) submit(ctx context.Context) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	next, r := s.ctrl.Apply(ctx, st, controller.Submitted{})
	if err := s.save(ctx, next); err != nil {
		return err
	}
	return s.formatter.RenderView(r, output.ViewOptions{})
}

func (s *interactiveSession) status(ctx context.Context) error {
	st, err := s.load(ctx)
	if err != nil {
		return err
	}
	next, r := s.ctrl.Apply(ctx, st, controller.Rendered{})
	if err := s.save(ctx, next); err != nil {
		return err
	}

	f := s.formatter
	if f.Format() == output.FormatJSON {
		return f.JSON(r)
	}
	f.Item("Session", s.name)
	f.Item("Mode", next.Mode.Label())
	f.Item("Encoding", next.Encoding.String())
	f.Item("Phase", string(next.Phase))
	f.Item("Draft", strconv.Itoa(len([]rune(next.Text)))+" characters")
	if next.FileName != "" {
		f.Item("File", next.FileName)
	}
	if r.HasResult() {
		f.Item("Last result", r.Result.String())
	}
	return nil
}

func (s *interactiveSession) load(ctx context.Context) (*session.State, error) {
	st, err := s.store.Load(ctx, s.id)
	if err != nil {
		if domainErrors.CodeOf(err) != domainErrors.CodeNotFound {
			return nil, err
		}
		st = s.current.Clone()
	}
	return st, nil
}

func (s *interactiveSession) save(ctx context.Context, st *session.State) error {
	if err := s.store.Save(ctx, s.id, st); err != nil {
		return err
	}
	s.current = st
	return nil
}
