package model

import (
	"fmt"
	"reflect"

	sdkmath "cosmossdk.io/math"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var (
	tInt = reflect.TypeOf(sdkmath.Int{})
	tDec = reflect.TypeOf(sdkmath.LegacyDec{})
)

// Registry returns the bson registry used by the mongo client. Fixed-point
// amounts are stored as decimal strings so no precision is lost.
func Registry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(tInt, bsoncodec.ValueEncoderFunc(encodeInt))
	reg.RegisterTypeDecoder(tInt, bsoncodec.ValueDecoderFunc(decodeInt))
	reg.RegisterTypeEncoder(tDec, bsoncodec.ValueEncoderFunc(encodeDec))
	reg.RegisterTypeDecoder(tDec, bsoncodec.ValueDecoderFunc(decodeDec))
	return reg
}

func encodeInt(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != tInt {
		return bsoncodec.ValueEncoderError{Name: "IntEncodeValue", Types: []reflect.Type{tInt}, Received: val}
	}
	i := val.Interface().(sdkmath.Int)
	if i.IsNil() {
		return vw.WriteString("0")
	}
	return vw.WriteString(i.String())
}

func decodeInt(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != tInt {
		return bsoncodec.ValueDecoderError{Name: "IntDecodeValue", Types: []reflect.Type{tInt}, Received: val}
	}

	switch vr.Type() {
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
		val.Set(reflect.ValueOf(sdkmath.ZeroInt()))
		return nil
	case bsontype.String:
		s, err := vr.ReadString()
		if err != nil {
			return err
		}
		i, ok := sdkmath.NewIntFromString(s)
		if !ok {
			return fmt.Errorf("invalid integer amount %q", s)
		}
		val.Set(reflect.ValueOf(i))
		return nil
	default:
		return fmt.Errorf("cannot decode %v into math.Int", vr.Type())
	}
}

func encodeDec(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != tDec {
		return bsoncodec.ValueEncoderError{Name: "DecEncodeValue", Types: []reflect.Type{tDec}, Received: val}
	}
	d := val.Interface().(sdkmath.LegacyDec)
	if d.IsNil() {
		return vw.WriteString(sdkmath.LegacyZeroDec().String())
	}
	return vw.WriteString(d.String())
}

func decodeDec(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != tDec {
		return bsoncodec.ValueDecoderError{Name: "DecDecodeValue", Types: []reflect.Type{tDec}, Received: val}
	}

	switch vr.Type() {
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
		val.Set(reflect.ValueOf(sdkmath.LegacyZeroDec()))
		return nil
	case bsontype.String:
		s, err := vr.ReadString()
		if err != nil {
			return err
		}
		d, err := sdkmath.LegacyNewDecFromStr(s)
		if err != nil {
			return fmt.Errorf("invalid decimal %q: %w", s, err)
		}
		val.Set(reflect.ValueOf(d))
		return nil
	default:
		return fmt.Errorf("cannot decode %v into math.LegacyDec", vr.Type())
	}
}
