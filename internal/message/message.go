// Package message defines the leveled messages returned by every
// orchestration step and consumed by the UI dispatcher.
package message

// Level is the severity of a message.
type Level int

const (
	LevelLog Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelSuccess:
		return "success"
	default:
		return "log"
	}
}

// Tag asks the dispatcher for an extra presentation of a message.
type Tag uint8

const (
	TagPopup Tag = 1 << iota
	TagToast
)

// Has reports whether all bits of t2 are set in t.
func (t Tag) Has(t2 Tag) bool {
	return t&t2 == t2
}

// Stage names the pipeline step that produced tool output.
type Stage string

const (
	StageCompile  Stage = "compile"
	StageSimulate Stage = "simulate"
)

// Aux carries raw tool output for downstream diagnostic parsing.
type Aux struct {
	Stage  Stage
	Stderr string
}

// Message is a single user-facing message.
type Message struct {
	Level Level
	Text  string
	Tags  Tag
	Aux   *Aux
}

// New creates a message with the given level and tags.
func New(level Level, text string, tags ...Tag) Message {
	m := Message{Level: level, Text: text}
	for _, t := range tags {
		m.Tags |= t
	}
	return m
}

// Error is an error message shown as a popup.
func Error(text string) Message {
	return New(LevelError, text, TagPopup)
}

// Log is a plain console message.
func Log(text string) Message {
	return New(LevelLog, text)
}

// WithAux returns a copy of m carrying aux.
func (m Message) WithAux(aux Aux) Message {
	m.Aux = &aux
	return m
}

// Result is the outcome of an orchestration step.
type Result struct {
	Success  bool
	Messages []Message
}

// OK returns a successful, empty result.
func OK() Result {
	return Result{Success: true, Messages: []Message{}}
}

// Add appends messages without changing the outcome.
func (r *Result) Add(msgs ...Message) {
	r.Messages = append(r.Messages, msgs...)
}

// Fail appends msg and marks the result as failed.
func (r *Result) Fail(msg Message) Result {
	r.Messages = append(r.Messages, msg)
	r.Success = false
	return *r
}

// Errors returns the error-level messages.
func (r Result) Errors() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Level == LevelError {
			out = append(out, m)
		}
	}
	return out
}

// Stderr collects the tool output attached to the messages, in order.
func (r Result) Stderr() []Aux {
	var out []Aux
	for _, m := range r.Messages {
		if m.Aux != nil && m.Aux.Stderr != "" {
			out = append(out, *m.Aux)
		}
	}
	return out
}
