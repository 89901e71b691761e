package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Args is the named parameter set of one cached call. Values must be JSON
// encodable. Timestamps are normalized to UTC RFC 3339 at every nesting level,
// so the same instant always produces the same key whether it arrives as a
// time.Time or its RFC 3339 text. A key present with a nil value is distinct
// from an absent key.
type Args map[string]any

// maxExactInt is the largest magnitude an integer can have and still survive
// the IEEE 754 number model of RFC 8785 unchanged.
const maxExactInt = 1 << 53

// maxArgDepth bounds the integer walk; deeper values are rejected.
const maxArgDepth = 32

var marshalerType = reflect.TypeFor[json.Marshaler]()

// Key returns op + ":" + hex(sha256(Canonical(args))).
func Key(op string, args Args) (string, error) {
	payload, err := Canonical(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return op + ":" + hex.EncodeToString(sum[:]), nil
}

// Canonical encodes args as RFC 8785 (JCS) JSON: object members sorted at every
// nesting level, numbers and strings in their canonical form. A nil Args
// encodes the same as an empty one.
func Canonical(args Args) ([]byte, error) {
	norm := make(map[string]any, len(args))
	for k, v := range args {
		v = normalizeArg(v)
		if err := checkIntegers(reflect.ValueOf(v), 0); err != nil {
			return nil, fmt.Errorf("%w: argument %q: %v", ErrUnsupportedArg, k, err)
		}
		norm[k] = v
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedArg, err)
	}
	if raw, err = normalizeTimes(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedArg, err)
	}
	out, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedArg, err)
	}
	return out, nil
}

func normalizeArg(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return t.String()
	}
	return v
}

// checkIntegers rejects Go integers that JCS would silently round, since two
// such arguments could otherwise share a key. Floats are exact doubles already
// and pass at any magnitude. Values with their own MarshalJSON are opaque.
func checkIntegers(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return nil
	}
	if depth > maxArgDepth {
		return fmt.Errorf("nested deeper than %d levels", maxArgDepth)
	}
	if v.Type().Implements(marshalerType) {
		return nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n := v.Int(); n > maxExactInt || n < -maxExactInt {
			return fmt.Errorf("integer %d exceeds 2^53, pass it as a string", n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n := v.Uint(); n > maxExactInt {
			return fmt.Errorf("integer %d exceeds 2^53, pass it as a string", n)
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkIntegers(v.Elem(), depth+1)
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil // base64 text
		}
		for i := range v.Len() {
			if err := checkIntegers(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		for it := v.MapRange(); it.Next(); {
			if err := checkIntegers(it.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		typ := v.Type()
		for i := range typ.NumField() {
			f := typ.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			if err := checkIntegers(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalizeTimes rewrites every RFC 3339 string in raw to UTC. Nested
// time.Time values marshal with their zone offset; this gives them the same
// form the top-level arguments get.
func normalizeTimes(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return json.Marshal(utcTimes(tree))
}

func utcTimes(v any) any {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC().Format(time.RFC3339Nano)
		}
	case map[string]any:
		for k, e := range t {
			t[k] = utcTimes(e)
		}
	case []any:
		for i, e := range t {
			t[i] = utcTimes(e)
		}
	}
	return v
}
