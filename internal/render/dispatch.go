package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/joss/benchsim/internal/diagnostics"
	"github.com/joss/benchsim/internal/i18n"
	"github.com/joss/benchsim/internal/message"
	bstrings "github.com/joss/benchsim/internal/strings"
)

// Policy says which levels get a presentation by default.
type Policy map[message.Level]bool

// Default presentation policies: errors pop up, warnings and successes
// toast. Message tags add to these.
var (
	DefaultPopup = Policy{message.LevelError: true}
	DefaultToast = Policy{message.LevelWarning: true, message.LevelSuccess: true}
)

// Dispatcher prints orchestration results to a terminal. Each message is
// printed once, in the most prominent style it asks for: popup box, toast
// banner, or a plain colored console line.
type Dispatcher struct {
	out     io.Writer
	width   int
	tr      *i18n.Translator
	PopupOn Policy
	ToastOn Policy
}

// NewDispatcher writes to out using tr for titles.
func NewDispatcher(out io.Writer, tr *i18n.Translator) *Dispatcher {
	if tr == nil {
		tr = i18n.New(i18n.DefaultLang)
	}
	return &Dispatcher{
		out:     out,
		width:   Width(out),
		tr:      tr,
		PopupOn: DefaultPopup,
		ToastOn: DefaultToast,
	}
}

// SetWidth overrides the detected terminal width.
func (d *Dispatcher) SetWidth(w int) {
	if w > 20 {
		d.width = w
	}
}

// Wants reports the presentations m should get.
func (d *Dispatcher) Wants(m message.Message) (popup, toast bool) {
	popup = m.Tags.Has(message.TagPopup) || d.PopupOn[m.Level]
	toast = m.Tags.Has(message.TagToast) || d.ToastOn[m.Level]
	return popup, toast
}

// Dispatch prints every message of r, then the problems parsed from any
// attached tool output. folder resolves relative file names.
func (d *Dispatcher) Dispatch(r message.Result, folder string) {
	for _, m := range r.Messages {
		d.Handle(m)
	}
	d.Problems(diagnostics.FromResult(r, folder))
}

// Handle prints one message.
func (d *Dispatcher) Handle(m message.Message) {
	popup, toast := d.Wants(m)
	switch {
	case popup:
		d.popup(m)
	case toast:
		d.toast(m)
	default:
		fmt.Fprintln(d.out, levelColor(m.Level)(bstrings.WordWrap(m.Text, d.width)))
	}
}

func levelColor(l message.Level) func(format string, a ...interface{}) string {
	switch l {
	case message.LevelError:
		return color.New(color.FgRed, color.Bold).SprintfFunc()
	case message.LevelWarning:
		return color.New(color.FgYellow, color.Bold).SprintfFunc()
	case message.LevelSuccess:
		return color.New(color.FgGreen, color.Bold).SprintfFunc()
	default:
		return fmt.Sprintf
	}
}

// Title is the popup heading for l.
func (d *Dispatcher) Title(l message.Level) string {
	switch l {
	case message.LevelError:
		return d.tr.T(i18n.PopupErrorTitle)
	case message.LevelWarning:
		return d.tr.T(i18n.PopupWarningTitle)
	default:
		return d.tr.T(i18n.PopupInfoTitle)
	}
}

func (d *Dispatcher) popup(m message.Message) {
	paint := levelColor(m.Level)
	inner := d.width - 2
	if inner < 20 {
		inner = 20
	}
	title := d.Title(m.Level)

	bar := inner - len([]rune(title)) - 3
	if bar < 0 {
		bar = 0
	}
	fmt.Fprintln(d.out, paint("┌─ %s %s", title, strings.Repeat("─", bar)))
	for _, line := range strings.Split(bstrings.WordWrap(strings.TrimRight(m.Text, "\n"), inner), "\n") {
		fmt.Fprintln(d.out, paint("│")+" "+line)
	}
	fmt.Fprintln(d.out, paint("└%s", strings.Repeat("─", inner)))
}

func (d *Dispatcher) toast(m message.Message) {
	paint := levelColor(m.Level)
	if m.Level == message.LevelLog {
		paint = color.New(color.FgCyan).SprintfFunc()
	}
	fmt.Fprintln(d.out, paint("» %s: %s", d.tr.T(i18n.AppName), m.Text))
}

// Problems prints a numbered list of located diagnostics.
func (d *Dispatcher) Problems(ps []diagnostics.Problem) {
	if len(ps) == 0 {
		return
	}
	fmt.Fprintln(d.out, color.New(color.Bold).Sprint(d.tr.T(i18n.ProblemsCount, len(ps))))
	for i, p := range ps {
		fmt.Fprintf(d.out, "%3d. %s  %s\n", i+1, color.CyanString(p.Location()), p.Message)
	}
}
