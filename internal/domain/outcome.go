package domain

import "encoding/json"

// ReasonNotCollected is reported by the zero Outcome.
const ReasonNotCollected = "not collected"

// Outcome is the result of one collector or derivation: either a value or the
// reason it could not be produced. The zero value is a failure.
type Outcome[T any] struct {
	value  T
	ok     bool
	reason string
}

func Success[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, ok: true}
}

func Failed[T any](reason string) Outcome[T] {
	if reason == "" {
		reason = ReasonNotCollected
	}
	return Outcome[T]{reason: reason}
}

// Get returns the value and whether the outcome succeeded.
func (o Outcome[T]) Get() (T, bool) { return o.value, o.ok }

func (o Outcome[T]) Failed() bool { return !o.ok }

// Reason is empty for successes.
func (o Outcome[T]) Reason() string {
	if o.ok {
		return ""
	}
	if o.reason == "" {
		return ReasonNotCollected
	}
	return o.reason
}

type outcomeJSON[T any] struct {
	OK     bool   `json:"ok"`
	Value  *T     `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (o Outcome[T]) MarshalJSON() ([]byte, error) {
	if o.ok {
		v := o.value
		return json.Marshal(outcomeJSON[T]{OK: true, Value: &v})
	}
	return json.Marshal(outcomeJSON[T]{Reason: o.Reason()})
}

func (o *Outcome[T]) UnmarshalJSON(b []byte) error {
	var raw outcomeJSON[T]
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.OK && raw.Value != nil {
		*o = Success(*raw.Value)
		return nil
	}
	*o = Failed[T](raw.Reason)
	return nil
}
