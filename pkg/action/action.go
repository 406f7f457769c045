// Package action defines the intents the engine asks an executor to carry out.
package action

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies an intent.
type Kind string

const (
	Scroll     Kind = "scroll"
	MoveCursor Kind = "moveCursor"
	Click      Kind = "click"

	GoBack      Kind = "goBack"
	GoForward   Kind = "goForward"
	NewTab      Kind = "newTab"
	CloseTab    Kind = "closeTab"
	Refresh     Kind = "refresh"
	NextTab     Kind = "nextTab"
	PreviousTab Kind = "previousTab"

	EnableTextFieldMode  Kind = "enableTextFieldMode"
	DisableTextFieldMode Kind = "disableTextFieldMode"
	NextTextField        Kind = "nextTextField"
	PreviousTextField    Kind = "previousTextField"
	SelectTextField      Kind = "selectTextField"
	HighlightEditOption  Kind = "highlightEditOption"
	ConfirmEditOption    Kind = "confirmEditOption"
)

// Discrete reports whether k is a one-shot gesture action as opposed to the
// continuous scroll and cursor streams.
func (k Kind) Discrete() bool {
	return k != Scroll && k != MoveCursor
}

// EditOption is one of the three rewrite choices offered for a text field.
type EditOption int

const (
	Keep EditOption = iota
	Fix
	Rewrite

	editOptionCount = 3
)

// String returns the option name.
func (o EditOption) String() string {
	switch o {
	case Keep:
		return "keep"
	case Fix:
		return "fix"
	case Rewrite:
		return "rewrite"
	default:
		return "unknown"
	}
}

// Step moves dir positions through the options, wrapping around.
func (o EditOption) Step(dir int) EditOption {
	n := (int(o) + dir) % editOptionCount
	if n < 0 {
		n += editOptionCount
	}
	return EditOption(n)
}

// Intent is a request for the executor. Only the payload fields relevant to
// Kind are set.
type Intent struct {
	ID   string    `json:"id"`
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`

	// Scroll
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// MoveCursor, normalized to [0,1]
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// SelectTextField
	Index int `json:"index,omitempty"`

	// HighlightEditOption, ConfirmEditOption
	Option EditOption `json:"option,omitempty"`
}

// New creates a payload-free intent.
func New(kind Kind, at time.Time) Intent {
	return Intent{ID: uuid.NewString(), Kind: kind, At: at}
}

// NewScroll creates a scroll intent with pixel deltas.
func NewScroll(dx, dy float64, at time.Time) Intent {
	i := New(Scroll, at)
	i.DX, i.DY = dx, dy
	return i
}

// NewMoveCursor creates a cursor intent at a normalized screen position.
func NewMoveCursor(x, y float64, at time.Time) Intent {
	i := New(MoveCursor, at)
	i.X, i.Y = x, y
	return i
}

// NewSelectTextField creates a field selection intent.
func NewSelectTextField(index int, at time.Time) Intent {
	i := New(SelectTextField, at)
	i.Index = index
	return i
}

// NewEditOption creates a highlight or confirm intent for an edit option.
func NewEditOption(kind Kind, o EditOption, at time.Time) Intent {
	i := New(kind, at)
	i.Option = o
	return i
}

// Kinds returns the kinds of intents, in order.
func Kinds(intents []Intent) []Kind {
	out := make([]Kind, len(intents))
	for i, in := range intents {
		out[i] = in.Kind
	}
	return out
}
