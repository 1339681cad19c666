package logger

import "log/slog"

// redacted replaces every rendering of a Secret.
const redacted = "[REDACTED]"

// Secret holds a sensitive value, typically the generated SQL admin password.
// It renders as [REDACTED] through slog, fmt verbs, and string conversion in
// log contexts; callers that genuinely need the raw value use Reveal.
type Secret string

// LogValue implements slog.LogValuer so structured logs never carry the value.
func (Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// String implements fmt.Stringer; %s/%v print [REDACTED].
func (Secret) String() string {
	return redacted
}

// GoString implements fmt.GoStringer; %#v prints [REDACTED] too.
func (Secret) GoString() string {
	return redacted
}

// MarshalText keeps the value out of JSON/YAML encodings of carrying structs.
func (Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Reveal returns the raw value.
func (s Secret) Reveal() string {
	return string(s)
}
