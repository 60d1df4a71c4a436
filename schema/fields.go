// Package schema declares resource schemas: typed attribute fields,
// relationships, validators and the controller hooks a resource type is
// served by. Schemas are built with explicit constructor functions and
// registered in a Registry at startup.
package schema

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event describes in which write contexts a field is writable or required.
type Event int

const (
	// Never disables the gate in every context.
	Never Event = iota
	// OnCreate enables the gate for resource creation only.
	OnCreate
	// OnUpdate enables the gate for resource updates only.
	OnUpdate
	// Always enables the gate in every context.
	Always
)

// Operation is the write context a request document is decoded in.
type Operation int

const (
	// Create decodes the document of a POST /{type} request.
	Create Operation = iota
	// Update decodes the document of a PATCH /{type}/{id} request.
	Update
)

// Covers reports whether the event gate is open for the operation.
func (e Event) Covers(op Operation) bool {
	switch e {
	case Always:
		return true
	case OnCreate:
		return op == Create
	case OnUpdate:
		return op == Update
	default:
		return false
	}
}

// Getter extracts a field's native value from a resource object.
type Getter func(resource interface{}) interface{}

// Validator checks a decoded native value. The returned error's message is
// surfaced to the client in a validation error object.
type Validator func(value interface{}) error

// Codec converts one field kind between wire and native representation.
type Codec interface {
	// Encode converts a native value into a JSON-marshalable value.
	Encode(value interface{}) (interface{}, error)

	// Decode converts a raw JSON value into the field's native type.
	Decode(raw json.RawMessage) (interface{}, error)
}

// Attribute is a typed attribute field on a schema.
type Attribute struct {
	name       string
	codec      Codec
	get        Getter
	allowNull  bool
	writable   Event
	required   Event
	validators []Validator
}

// FieldOption configures an attribute at declaration time.
type FieldOption func(*Attribute)

// Get sets the getter mapping the attribute to the resource object. Every
// attribute needs one; schema building fails otherwise.
func Get(g Getter) FieldOption {
	return func(a *Attribute) { a.get = g }
}

// AllowNull lets clients send an explicit null for the attribute.
func AllowNull() FieldOption {
	return func(a *Attribute) { a.allowNull = true }
}

// ReadOnly rejects the attribute in every write context.
func ReadOnly() FieldOption {
	return func(a *Attribute) { a.writable = Never }
}

// WritableOn restricts the write contexts accepting the attribute.
func WritableOn(e Event) FieldOption {
	return func(a *Attribute) { a.writable = e }
}

// RequiredOn marks the attribute as mandatory input in the given contexts.
func RequiredOn(e Event) FieldOption {
	return func(a *Attribute) { a.required = e }
}

// Validate appends validators run against the decoded native value.
func Validate(v ...Validator) FieldOption {
	return func(a *Attribute) { a.validators = append(a.validators, v...) }
}

func newAttribute(name string, codec Codec, opts []FieldOption) *Attribute {
	a := &Attribute{name: name, codec: codec, writable: Always, required: Never}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// String declares a string attribute.
func String(name string, opts ...FieldOption) *Attribute {
	return newAttribute(name, stringCodec{}, opts)
}

// Integer declares an int64 attribute.
func Integer(name string, opts ...FieldOption) *Attribute {
	return newAttribute(name, integerCodec{}, opts)
}

// Boolean declares a bool attribute.
func Boolean(name string, opts ...FieldOption) *Attribute {
	return newAttribute(name, booleanCodec{}, opts)
}

// Decimal declares an exact-precision decimal attribute. On the wire the
// value is a JSON string to avoid float rounding.
func Decimal(name string, opts ...FieldOption) *Attribute {
	return newAttribute(name, decimalCodec{}, opts)
}

// UUID declares a uuid.UUID attribute, serialized in canonical string form.
func UUID(name string, opts ...FieldOption) *Attribute {
	return newAttribute(name, uuidCodec{}, opts)
}

// DateTime declares a time.Time attribute, serialized as RFC 3339.
func DateTime(name string, opts ...FieldOption) *Attribute {
	return newAttribute(name, dateTimeCodec{}, opts)
}

// List declares a homogeneous list attribute whose elements are converted
// by the given codec. StringCodec, IntegerCodec and friends are exported
// for this purpose.
func List(name string, elem Codec, opts ...FieldOption) *Attribute {
	return newAttribute(name, listCodec{elem: elem}, opts)
}

// Name returns the attribute's declared name.
func (a *Attribute) Name() string { return a.name }

// Writable reports whether clients may set the attribute in the operation.
func (a *Attribute) Writable(op Operation) bool { return a.writable.Covers(op) }

// Required reports whether the attribute is mandatory in the operation.
func (a *Attribute) Required(op Operation) bool { return a.required.Covers(op) }

// Encode reads the attribute from the resource object and converts it to
// its wire representation.
func (a *Attribute) Encode(resource interface{}) (interface{}, error) {
	if a.get == nil {
		return nil, fmt.Errorf("attribute %q has no getter", a.name)
	}
	value := a.get(resource)
	if value == nil {
		return nil, nil
	}
	return a.codec.Encode(value)
}

// Decode converts a raw JSON value into the attribute's native type and
// runs the attribute's validators on it.
func (a *Attribute) Decode(raw json.RawMessage) (interface{}, error) {
	if string(raw) == "null" {
		if !a.allowNull {
			return nil, fmt.Errorf("must not be null")
		}
		return nil, nil
	}

	value, err := a.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	for _, validate := range a.validators {
		if err := validate(value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// Exported codecs for List elements.
var (
	StringCodec   Codec = stringCodec{}
	IntegerCodec  Codec = integerCodec{}
	BooleanCodec  Codec = booleanCodec{}
	DecimalCodec  Codec = decimalCodec{}
	UUIDCodec     Codec = uuidCodec{}
	DateTimeCodec Codec = dateTimeCodec{}
)

type stringCodec struct{}

func (stringCodec) Encode(v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func (stringCodec) Decode(raw json.RawMessage) (interface{}, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("must be a string")
	}
	return s, nil
}

type integerCodec struct{}

func (integerCodec) Encode(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

func (integerCodec) Decode(raw json.RawMessage) (interface{}, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("must be an integer")
	}
	return n, nil
}

type booleanCodec struct{}

func (booleanCodec) Encode(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("expected bool, got %T", v)
	}
	return b, nil
}

func (booleanCodec) Decode(raw json.RawMessage) (interface{}, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("must be a boolean")
	}
	return b, nil
}

type decimalCodec struct{}

func (decimalCodec) Encode(v interface{}) (interface{}, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return nil, fmt.Errorf("expected decimal.Decimal, got %T", v)
	}
	return d.String(), nil
}

func (decimalCodec) Decode(raw json.RawMessage) (interface{}, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Accept bare JSON numbers too; exactness is preserved because the
		// raw token is parsed, not a float64.
		s = string(raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("must be a decimal number")
	}
	return d, nil
}

type uuidCodec struct{}

func (uuidCodec) Encode(v interface{}) (interface{}, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return u.String(), nil
	case string:
		parsed, err := uuid.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID %q", u)
		}
		return parsed.String(), nil
	default:
		return nil, fmt.Errorf("expected uuid.UUID, got %T", v)
	}
}

func (uuidCodec) Decode(raw json.RawMessage) (interface{}, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("must be a UUID string")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("must be a valid UUID")
	}
	return u, nil
}

type dateTimeCodec struct{}

func (dateTimeCodec) Encode(v interface{}) (interface{}, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("expected time.Time, got %T", v)
	}
	return t.Format(time.RFC3339), nil
}

func (dateTimeCodec) Decode(raw json.RawMessage) (interface{}, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("must be an RFC 3339 datetime string")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("must be an RFC 3339 datetime")
	}
	return t, nil
}

type listCodec struct {
	elem Codec
}

func (c listCodec) Encode(v interface{}) (interface{}, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected slice, got %T", v)
	}
	out := make([]interface{}, len(items))
	for i, item := range items {
		encoded, err := c.elem.Encode(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = encoded
	}
	return out, nil
}

func (c listCodec) Decode(raw json.RawMessage) (interface{}, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("must be an array")
	}
	out := make([]interface{}, len(items))
	for i, item := range items {
		decoded, err := c.elem.Decode(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = decoded
	}
	return out, nil
}

// MinLength validates that a string has at least n runes.
func MinLength(n int) Validator {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string value")
		}
		if utf8.RuneCountInString(s) < n {
			return fmt.Errorf("must be at least %d characters", n)
		}
		return nil
	}
}

// MaxLength validates that a string has at most n runes.
func MaxLength(n int) Validator {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string value")
		}
		if utf8.RuneCountInString(s) > n {
			return fmt.Errorf("must be at most %d characters", n)
		}
		return nil
	}
}

// NotBlank validates that a string is not empty or whitespace-only.
func NotBlank() Validator {
	blank := regexp.MustCompile(`^\s*$`)
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string value")
		}
		if blank.MatchString(s) {
			return fmt.Errorf("must not be blank")
		}
		return nil
	}
}

// Matches validates a string against a pattern.
func Matches(re *regexp.Regexp) Validator {
	return func(v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string value")
		}
		if !re.MatchString(s) {
			return fmt.Errorf("must match %s", re.String())
		}
		return nil
	}
}

// Min validates that an integer is at least n.
func Min(n int64) Validator {
	return func(v interface{}) error {
		i, ok := v.(int64)
		if !ok {
			return fmt.Errorf("expected integer value")
		}
		if i < n {
			return fmt.Errorf("must be at least %d", n)
		}
		return nil
	}
}

// Max validates that an integer is at most n.
func Max(n int64) Validator {
	return func(v interface{}) error {
		i, ok := v.(int64)
		if !ok {
			return fmt.Errorf("expected integer value")
		}
		if i > n {
			return fmt.Errorf("must be at most %d", n)
		}
		return nil
	}
}
