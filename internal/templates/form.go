package templates

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FieldType discriminates form field values.
type FieldType string

// Field types.
const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldBool   FieldType = "bool"
)

// DateLayout is the wire format of date values.
const DateLayout = "2006-01-02"

// FieldValue is implemented by Text, Number, Date and Bool only.
type FieldValue interface {
	Type() FieldType
	// String renders the value for substitution into template text.
	String() string
	fieldValue()
}

type Text struct{ Value string }
type Number struct{ Value float64 }
type Date struct{ Value time.Time }
type Bool struct{ Value bool }

func (Text) Type() FieldType   { return FieldText }
func (Number) Type() FieldType { return FieldNumber }
func (Date) Type() FieldType   { return FieldDate }
func (Bool) Type() FieldType   { return FieldBool }

func (v Text) String() string   { return v.Value }
func (v Number) String() string { return strconv.FormatFloat(v.Value, 'f', -1, 64) }
func (v Date) String() string   { return v.Value.Format("January 2, 2006") }

func (v Bool) String() string {
	if v.Value {
		return "Yes"
	}
	return "No"
}

func (Text) fieldValue()   {}
func (Number) fieldValue() {}
func (Date) fieldValue()   {}
func (Bool) fieldValue()   {}

// FormData holds the values substituted into a template, keyed by field name.
type FormData map[string]FieldValue

type fieldRecord struct {
	Type  FieldType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes each value as {"type": ..., "value": ...}.
func (f FormData) MarshalJSON() ([]byte, error) {
	out := make(map[string]fieldRecord, len(f))
	for name, v := range f {
		if v == nil {
			continue
		}
		var (
			raw []byte
			err error
		)
		switch v := v.(type) {
		case Text:
			raw, err = json.Marshal(v.Value)
		case Number:
			raw, err = json.Marshal(v.Value)
		case Date:
			raw, err = json.Marshal(v.Value.Format(DateLayout))
		case Bool:
			raw, err = json.Marshal(v.Value)
		}
		if err != nil {
			return nil, err
		}
		out[name] = fieldRecord{Type: v.Type(), Value: raw}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes values by their type discriminant.
func (f *FormData) UnmarshalJSON(data []byte) error {
	var records map[string]fieldRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}

	out := make(FormData, len(records))
	for name, r := range records {
		v, err := decodeField(r)
		if err != nil {
			return fmt.Errorf("%w: field %q: %w", ErrInvalidForm, name, err)
		}
		out[name] = v
	}
	*f = out
	return nil
}

func decodeField(r fieldRecord) (FieldValue, error) {
	switch r.Type {
	case FieldText:
		var s string
		err := json.Unmarshal(r.Value, &s)
		return Text{Value: s}, err
	case FieldNumber:
		var n float64
		err := json.Unmarshal(r.Value, &n)
		return Number{Value: n}, err
	case FieldDate:
		var s string
		if err := json.Unmarshal(r.Value, &s); err != nil {
			return nil, err
		}
		t, err := time.Parse(DateLayout, s)
		return Date{Value: t}, err
	case FieldBool:
		var b bool
		err := json.Unmarshal(r.Value, &b)
		return Bool{Value: b}, err
	default:
		return nil, fmt.Errorf("unknown field type %q", r.Type)
	}
}
