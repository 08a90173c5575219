package study

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome is the user-reported difficulty of a reviewed card.
type Outcome int

const (
	Again Outcome = iota + 1 // Not recalled.
	Hard                     // Recalled with difficulty.
	Good                     // Recalled.
	Easy                     // Recalled effortlessly.
)

var (
	outcomeNames  = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}
	outcomeByName = map[string]Outcome{
		"again": Again,
		"hard":  Hard,
		"good":  Good,
		"easy":  Easy,
	}
)

var (
	_ fmt.Stringer             = Outcome(0)
	_ json.Marshaler           = Outcome(0)
	_ json.Unmarshaler         = (*Outcome)(nil)
	_ encoding.TextMarshaler   = Outcome(0)
	_ encoding.TextUnmarshaler = (*Outcome)(nil)
)

// ParseOutcome converts "again", "hard", "good" or "easy" (any case) to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	o, ok := outcomeByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
	return o, nil
}

// IsValid reports whether o is Again through Easy.
func (o Outcome) IsValid() bool {
	return o >= Again && o <= Easy
}

// Correct reports whether the outcome counts as a successful recall.
func (o Outcome) Correct() bool {
	return o.IsValid() && o != Again
}

func (o Outcome) String() string {
	if o.IsValid() {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return []byte(outcomeNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalJSON implements json.Marshaler. Outcome serializes as a JSON string.
func (o Outcome) MarshalJSON() ([]byte, error) {
	text, err := o.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOutcome, data)
	}
	return o.UnmarshalText([]byte(s))
}
