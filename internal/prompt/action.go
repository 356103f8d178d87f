package prompt

// Action names one of the text transforms.
type Action string

const (
	Continue  Action = "continue"
	Format    Action = "format"
	Beautify  Action = "beautify"
	Polish    Action = "polish"
	Summarize Action = "summarize"
	Expand    Action = "expand"
)

// Actions lists every supported action in route order.
var Actions = []Action{Continue, Format, Beautify, Polish, Summarize, Expand}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := templates[a]
	return ok
}

// EchoesInput reports whether the model tends to repeat the input at the head of its answer.
func (a Action) EchoesInput() bool {
	return a == Continue || a == Expand
}
