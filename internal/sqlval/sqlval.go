// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlval decodes driver-returned row values into the plain Go
// types the engine's predicate algebra and axis machinery compare and
// hash, using vitess's int/long/double/decimal/binary column-type
// taxonomy to disambiguate a []byte payload (the shape the MySQL text
// protocol returns for every column, numeric or not) the way the
// teacher's own row-decoding plumbing does, per spec.md §4.6 step 3.
package sqlval

import (
	"github.com/spf13/cast"
	"gopkg.in/src-d/go-vitess.v0/sqltypes"
	querypb "gopkg.in/src-d/go-vitess.v0/vt/proto/query"

	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/predicate"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
)

// DatatypeOf maps a vitess column type onto the predicate.Datatype the
// comparator and SQL-quoting code uses.
func DatatypeOf(vtType querypb.Type) predicate.Datatype {
	switch vtType {
	case querypb.Type_INT8, querypb.Type_UINT8, querypb.Type_INT16, querypb.Type_UINT16,
		querypb.Type_INT24, querypb.Type_UINT24, querypb.Type_INT32, querypb.Type_UINT32,
		querypb.Type_INT64, querypb.Type_UINT64, querypb.Type_FLOAT32, querypb.Type_FLOAT64,
		querypb.Type_DECIMAL, querypb.Type_YEAR, querypb.Type_BIT:
		return predicate.Numeric
	case querypb.Type_DATE, querypb.Type_DATETIME, querypb.Type_TIMESTAMP, querypb.Type_TIME:
		return predicate.Date
	case querypb.Type_VARCHAR, querypb.Type_CHAR, querypb.Type_TEXT, querypb.Type_BLOB,
		querypb.Type_VARBINARY, querypb.Type_BINARY, querypb.Type_ENUM, querypb.Type_SET:
		return predicate.String
	default:
		return predicate.Other
	}
}

// VitessTypeOf picks a representative vitess type for a predicate
// datatype, the inverse mapping the loader uses when it only knows a
// column's predicate.Datatype (sqlgen.ColumnType does not carry the
// finer vitess taxonomy) but still wants Decode's []byte-disambiguation
// behaviour.
func VitessTypeOf(dt predicate.Datatype) querypb.Type {
	switch dt {
	case predicate.Numeric:
		return querypb.Type_FLOAT64
	case predicate.Date:
		return querypb.Type_DATETIME
	default:
		return querypb.Type_VARCHAR
	}
}

// Decode converts a raw driver value into the predicate.Value the
// engine stores. A []byte payload is interpreted according to vtType
// (the text protocol returns every column, numeric or not, as []byte);
// any other Go type returned by a typed driver passes through as-is.
func Decode(vtType querypb.Type, raw interface{}) (predicate.Value, error) {
	if raw == nil {
		return nil, nil
	}
	b, ok := raw.([]byte)
	if !ok {
		return raw, nil
	}
	v, err := sqltypes.NewValue(vtType, b)
	if err != nil {
		return nil, rolaperr.Internal.New("decoding sql value: " + err.Error())
	}
	native, err := v.ToNative()
	if err != nil {
		return nil, rolaperr.Internal.New("converting sql value: " + err.Error())
	}
	return native, nil
}

// DecodeFloat64 is the measure-value path: Decode, then coerce to
// float64 with spf13/cast, the same coercion predicate.ParseNumeric
// applies to constraint literals.
func DecodeFloat64(vtType querypb.Type, raw interface{}) (float64, error) {
	v, err := Decode(vtType, raw)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, rolaperr.Internal.New("non-numeric measure value: " + err.Error())
	}
	return f, nil
}

// DecodeInt64 is the GROUPING()-indicator path: a SQL GROUPING() result
// is always an integer 0 or 1.
func DecodeInt64(raw interface{}) (int64, error) {
	v, err := Decode(querypb.Type_INT64, raw)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, rolaperr.Internal.New("unrecognised GROUPING() value: " + err.Error())
	}
	return n, nil
}
