// Package bitfield packs and unpacks struct fields into integers.
// This is a simplified version based on golang.org/x/text/internal/gen/bitfield
package bitfield

import (
	"fmt"
	"reflect"
)

// Config determines settings for packing.
type Config struct {
	// NumBits fixes the maximum allowed bits for the integer representation.
	// Zero means 64.
	NumBits uint
}

// field is one bitfield-tagged struct member.
type field struct {
	index int
	name  string
	bits  uint
}

// fieldsOf returns the tagged fields of t in declaration order. The first
// tagged field occupies the least significant bits.
func fieldsOf(t reflect.Type) ([]field, error) {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("bitfield")
		if tag == "" {
			continue // Skip fields without bitfield tag
		}

		// Parse tag: "methodName,bits" or just ",bits"
		var bits uint
		if _, err := fmt.Sscanf(tag, ",%d", &bits); err != nil {
			var methodName string
			if _, err := fmt.Sscanf(tag, "%s,%d", &methodName, &bits); err != nil {
				return nil, fmt.Errorf("bitfield: invalid tag %q on field %s", tag, f.Name)
			}
		}
		if bits == 0 {
			continue
		}
		out = append(out, field{index: i, name: f.Name, bits: bits})
	}
	return out, nil
}

func structValue(x interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("bitfield: expected struct, got %v", v.Kind())
	}
	return v, nil
}

// Pack packs annotated bit ranges of struct x into an integer.
// Only fields that have a "bitfield" tag are compacted.
func Pack(x interface{}, c *Config) (packed uint64, err error) {
	if c == nil {
		c = &Config{NumBits: 64}
	}

	v, err := structValue(x)
	if err != nil {
		return 0, err
	}
	fields, err := fieldsOf(v.Type())
	if err != nil {
		return 0, err
	}

	var bitOffset uint
	for _, f := range fields {
		fieldValue := v.Field(f.index)
		var fieldBits uint64

		switch fieldValue.Kind() {
		case reflect.Bool:
			if fieldValue.Bool() {
				fieldBits = 1
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fieldBits = fieldValue.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			val := fieldValue.Int()
			if val < 0 {
				return 0, fmt.Errorf("bitfield: negative value %d for field %s", val, f.name)
			}
			fieldBits = uint64(val)
		default:
			return 0, fmt.Errorf("bitfield: unsupported field type %v for field %s", fieldValue.Kind(), f.name)
		}

		maxValue := uint64(1)<<f.bits - 1
		if fieldBits > maxValue {
			return 0, fmt.Errorf("bitfield: value %d exceeds %d bits for field %s", fieldBits, f.bits, f.name)
		}

		packed |= fieldBits << bitOffset
		bitOffset += f.bits
	}

	numBits := c.NumBits
	if numBits == 0 {
		numBits = 64
	}
	if bitOffset > numBits {
		return 0, fmt.Errorf("bitfield: total bits %d exceeds NumBits %d", bitOffset, numBits)
	}

	return packed, nil
}

// Unpack is the inverse of Pack: it distributes the bit ranges of packed
// over the tagged fields of the struct x points to.
func Unpack(packed uint64, x interface{}) error {
	v := reflect.ValueOf(x)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("bitfield: Unpack needs a non-nil pointer, got %T", x)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("bitfield: expected struct, got %v", v.Kind())
	}
	fields, err := fieldsOf(v.Type())
	if err != nil {
		return err
	}

	var bitOffset uint
	for _, f := range fields {
		bits := (packed >> bitOffset) & (uint64(1)<<f.bits - 1)
		bitOffset += f.bits

		fieldValue := v.Field(f.index)
		switch fieldValue.Kind() {
		case reflect.Bool:
			fieldValue.SetBool(bits != 0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fieldValue.SetUint(bits)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fieldValue.SetInt(int64(bits))
		default:
			return fmt.Errorf("bitfield: unsupported field type %v for field %s", fieldValue.Kind(), f.name)
		}
	}
	return nil
}
