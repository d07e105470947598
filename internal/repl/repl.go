// Package repl implements the interactive question loop: one question per
// line, answered by a rag.Controller, until the user types exit or quit.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/rag"
)

// DefaultPrompt is printed before every line read.
const DefaultPrompt = "Ask a question about the road network: "

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Controller is the part of rag.Controller the loop needs.
type Controller interface {
	Run(ctx context.Context, question string) (*rag.TurnResult, error)
	Session() *rag.SessionState
}

// Option configures a REPL.
type Option func(*REPL)

// WithInput sets the reader questions come from. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(p *REPL) { p.in = r }
}

// WithOutput sets where prompts and answers go. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *REPL) { p.out = w }
}

// WithErrorOutput sets where turn errors go. Defaults to os.Stderr.
func WithErrorOutput(w io.Writer) Option {
	return func(p *REPL) { p.errOut = w }
}

// WithColor forces colored output on or off. By default color is used
// only when the output is a terminal.
func WithColor(enabled bool) Option {
	return func(p *REPL) { p.color = &enabled }
}

// WithPrompt replaces DefaultPrompt.
func WithPrompt(prompt string) Option {
	return func(p *REPL) { p.prompt = prompt }
}

// WithTrace prints the per-aspect outcomes after each answer.
func WithTrace(enabled bool) Option {
	return func(p *REPL) { p.trace = enabled }
}

// WithLogger sets the logger used for turn failures.
func WithLogger(l *observability.TracedLogger) Option {
	return func(p *REPL) { p.logger = l }
}

// REPL reads questions and prints answers.
type REPL struct {
	ctrl   Controller
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	prompt string
	trace  bool
	color  *bool
	logger *observability.TracedLogger

	promptColor *color.Color
	answerColor *color.Color
	errorColor  *color.Color
	dimColor    *color.Color
}

// New creates a REPL around ctrl.
func New(ctrl Controller, opts ...Option) *REPL {
	p := &REPL{
		ctrl:   ctrl,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		prompt: DefaultPrompt,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = observability.NewTracedLogger(nil, "repl")
	}

	useColor := IsTerminal(p.out)
	if p.color != nil {
		useColor = *p.color
	}
	p.promptColor = newColor(useColor, color.FgCyan, color.Bold)
	p.answerColor = newColor(useColor, color.FgGreen)
	p.errorColor = newColor(useColor, color.FgRed)
	p.dimColor = newColor(useColor, color.Faint)
	return p
}

func newColor(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Run loops until exit/quit, end of input, or ctx is done. Turn failures
// are printed and the loop continues.
func (p *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(p.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		p.promptColor.Fprint(p.out, p.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(p.out)
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(p.out, "Goodbye!")
			return nil
		}
		if strings.HasPrefix(line, ":") {
			p.command(line)
			continue
		}

		p.ask(ctx, line)
	}
}

func isExit(line string) bool {
	return strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit")
}

func (p *REPL) ask(ctx context.Context, question string) {
	result, err := p.ctrl.Run(ctx, question)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		p.logger.Warn(ctx, "question failed", "error", err)
		p.errorColor.Fprintf(p.errOut, "Error: %v\n", err)
		return
	}

	p.answerColor.Fprintln(p.out, result.Answer)
	if p.trace {
		p.printTrace(result)
	}
	fmt.Fprintln(p.out)
}

func (p *REPL) printTrace(result *rag.TurnResult) {
	for _, a := range result.Aspects {
		status := string(a.Outcome)
		if a.Failed() {
			status = "error: " + a.Error
		}
		line := fmt.Sprintf("  %s [%s] %s", a.Aspect, status, a.Duration.Round(time.Millisecond))
		if len(a.Enqueued) > 0 {
			line += " -> " + strings.Join(a.Enqueued, ", ")
		}
		p.dimColor.Fprintln(p.out, line)
	}
}

func (p *REPL) command(line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	session := p.ctrl.Session()

	switch strings.ToLower(name) {
	case ":link":
		if arg == "" {
			p.errorColor.Fprintln(p.errOut, "Usage: :link <id>")
			return
		}
		session.SetLink(arg)
		fmt.Fprintf(p.out, "Current link set to %s\n", arg)
	case ":road":
		if arg == "" {
			p.errorColor.Fprintln(p.errOut, "Usage: :road <name>")
			return
		}
		session.SetRoad(arg)
		fmt.Fprintf(p.out, "Current road set to %s\n", arg)
	case ":session":
		snap := session.Snapshot()
		fmt.Fprintf(p.out, "link: %s\nroad: %s\n", orNone(snap.Link), orNone(snap.Road))
	case ":clear":
		session.Clear()
		fmt.Fprintln(p.out, "Session cleared")
	case ":trace":
		p.trace = !p.trace
		fmt.Fprintf(p.out, "Aspect trace %s\n", onOff(p.trace))
	case ":help":
		p.printHelp()
	default:
		p.errorColor.Fprintf(p.errOut, "Unknown command: %s (type :help for available commands)\n", name)
	}
}

func (p *REPL) printHelp() {
	fmt.Fprintln(p.out, "Type a question and press enter. Commands:")
	fmt.Fprintln(p.out, "  :link <id>     remember a link; \"this link\" refers to it")
	fmt.Fprintln(p.out, "  :road <name>   remember a road; \"this road\" refers to it")
	fmt.Fprintln(p.out, "  :session       show the remembered link and road")
	fmt.Fprintln(p.out, "  :clear         forget the link and road")
	fmt.Fprintln(p.out, "  :trace         toggle the per-aspect trace")
	fmt.Fprintln(p.out, "  :help          show this help")
	fmt.Fprintln(p.out, "  exit, quit     leave")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
