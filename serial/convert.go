package serial

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/tagtree/tag"
)

// Times are written as 100ns ticks since 0001-01-01 00:00:00 UTC. The zero
// time.Time is tick 0. Sub-tick precision and the location are not kept;
// decoded times are in UTC. The two top bits never carry a time kind.
const (
	ticksPerSecond   = 10_000_000
	nanosPerTick     = 100
	unixEpochSeconds = 62_135_596_800 // seconds from 0001-01-01 to 1970-01-01
)

// TimeToTicks converts t to its tick encoding.
func TimeToTicks(t time.Time) int64 {
	u := t.UTC()
	return (u.Unix()+unixEpochSeconds)*ticksPerSecond + int64(u.Nanosecond()/nanosPerTick)
}

// TicksToTime reverses TimeToTicks.
func TicksToTime(ticks int64) time.Time {
	sec := ticks/ticksPerSecond - unixEpochSeconds
	rem := ticks % ticksPerSecond
	return time.Unix(sec, rem*nanosPerTick).UTC()
}

// encodePrimitive writes a scalar value as the matching primitive tag.
func encodePrimitive(v reflect.Value, name string) (tag.Tag, error) {
	t := v.Type()
	switch t {
	case timeType:
		return tag.NewLong(name, TimeToTicks(v.Interface().(time.Time))), nil
	case uuidType:
		return tag.NewString(name, v.Interface().(uuid.UUID).String()), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		var b uint8
		if v.Bool() {
			b = 1
		}
		return tag.NewByte(name, b), nil
	case reflect.Int8:
		return tag.NewByte(name, uint8(v.Int())), nil
	case reflect.Uint8:
		return tag.NewByte(name, uint8(v.Uint())), nil
	case reflect.Int16:
		return tag.NewShort(name, int16(v.Int())), nil
	case reflect.Uint16:
		return tag.NewShort(name, int16(uint16(v.Uint()))), nil
	case reflect.Int32:
		return tag.NewInt(name, int32(v.Int())), nil
	case reflect.Uint32:
		return tag.NewInt(name, int32(uint32(v.Uint()))), nil
	case reflect.Int, reflect.Int64:
		return tag.NewLong(name, v.Int()), nil
	case reflect.Uint, reflect.Uint64:
		return tag.NewLong(name, int64(v.Uint())), nil
	case reflect.Float32:
		return tag.NewFloat(name, float32(v.Float())), nil
	case reflect.Float64:
		return tag.NewDouble(name, v.Float()), nil
	case reflect.String:
		return tag.NewString(name, v.String()), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			src := v.Bytes()
			buf := make([]byte, len(src))
			copy(buf, src)
			return tag.NewByteArray(name, buf), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPrimitive, t)
}

// decodePrimitive assigns a primitive tag to a scalar destination,
// applying the widenings the format defines:
//
//   - any integer tag into any integer kind, including enumerations
//   - any integer tag into bool (non-zero is true)
//   - any integer or floating tag into float kinds
//   - Long into time.Time, String into uuid.UUID
//   - ByteArray, or a List of integers, into byte slices
func decodePrimitive(t tag.Tag, dst reflect.Value) error {
	dt := dst.Type()
	switch dt {
	case timeType:
		l, ok := t.(*tag.Long)
		if !ok {
			return conversionError(t, dt)
		}
		dst.Set(reflect.ValueOf(TicksToTime(l.Value)))
		return nil
	case uuidType:
		s, ok := t.(*tag.String)
		if !ok {
			return conversionError(t, dt)
		}
		id, err := uuid.Parse(s.Value)
		if err != nil {
			return fmt.Errorf("%w: %q into %s: %v", ErrUnsupportedConversion, s.Value, dt, err)
		}
		dst.Set(reflect.ValueOf(id))
		return nil
	}

	switch dt.Kind() {
	case reflect.Bool:
		if n, ok := tag.IntegerValue(t); ok {
			dst.SetBool(n != 0)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := tag.IntegerValue(t); ok {
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n, ok := tag.IntegerValue(t); ok {
			dst.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch v := t.(type) {
		case *tag.Float:
			dst.SetFloat(float64(v.Value))
			return nil
		case *tag.Double:
			dst.SetFloat(v.Value)
			return nil
		}
		if n, ok := tag.IntegerValue(t); ok {
			dst.SetFloat(float64(n))
			return nil
		}
	case reflect.String:
		if s, ok := t.(*tag.String); ok {
			dst.SetString(s.Value)
			return nil
		}
	case reflect.Slice:
		if dt.Elem().Kind() == reflect.Uint8 {
			return decodeBytes(t, dst)
		}
	}
	return conversionError(t, dt)
}

func decodeBytes(t tag.Tag, dst reflect.Value) error {
	var buf []byte
	switch v := t.(type) {
	case *tag.ByteArray:
		buf = make([]byte, len(v.Value))
		copy(buf, v.Value)
	case *tag.List:
		buf = make([]byte, len(v.Items))
		for i, item := range v.Items {
			n, ok := tag.IntegerValue(item)
			if !ok {
				return conversionError(item, dst.Type().Elem())
			}
			buf[i] = byte(n)
		}
	default:
		return conversionError(t, dst.Type())
	}
	dst.Set(reflect.ValueOf(buf).Convert(dst.Type()))
	return nil
}

// naturalValue returns the Go value a primitive tag decodes to when the
// destination is an interface.
func naturalValue(t tag.Tag) (reflect.Value, bool) {
	switch v := t.(type) {
	case *tag.Byte:
		return reflect.ValueOf(v.Value), true
	case *tag.Short:
		return reflect.ValueOf(v.Value), true
	case *tag.Int:
		return reflect.ValueOf(v.Value), true
	case *tag.Long:
		return reflect.ValueOf(v.Value), true
	case *tag.Float:
		return reflect.ValueOf(v.Value), true
	case *tag.Double:
		return reflect.ValueOf(v.Value), true
	case *tag.String:
		return reflect.ValueOf(v.Value), true
	case *tag.ByteArray:
		buf := make([]byte, len(v.Value))
		copy(buf, v.Value)
		return reflect.ValueOf(buf), true
	}
	return reflect.Value{}, false
}
