package document

import "strings"

// Field is a part of a page whose token occurrences are counted separately.
type Field uint8

const (
	FieldBody Field = iota
	FieldTitle
	FieldH1
	FieldH2
	FieldH3
	FieldH4
	FieldH5
	FieldH6
)

var fieldNames = [...]string{
	FieldBody:  "body",
	FieldTitle: "title",
	FieldH1:    "h1",
	FieldH2:    "h2",
	FieldH3:    "h3",
	FieldH4:    "h4",
	FieldH5:    "h5",
	FieldH6:    "h6",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "unknown"
}

// ParseField maps an HTML tag or field name to a Field. Unknown names
// report false and must be ignored by the caller.
func ParseField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// MarshalText stores fields by name so persisted field maps stay readable.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(text []byte) error {
	parsed, ok := ParseField(string(text))
	if !ok {
		return &UnknownFieldError{Name: string(text)}
	}
	*f = parsed
	return nil
}

// UnknownFieldError is returned when decoding a field name outside the
// closed set.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return "unknown field " + `"` + e.Name + `"`
}
