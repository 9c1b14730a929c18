package stagebuilder

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Nothing is the scalar constant meaning "no value materialized here"; it
// is what EOF binds every requested slot to, and what an indeterminate
// shard key collapses to. Modeled as the zero bson.RawValue (no type byte,
// no data), distinct from both Null and Undefined below.
var Nothing = bson.RawValue{}

// Null is MQL's missing-field-at-sort-key-top-level constant.
var Null = mustRawValue(primitive.Null{})

// Undefined is MQL's empty-array-at-sort-key-leaf constant.
var Undefined = mustRawValue(primitive.Undefined{})

func mustRawValue(v any) bson.RawValue {
	data, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
	if err != nil {
		panic(err)
	}
	raw := bson.Raw(data)
	val := raw.Lookup("v")
	return val
}

// IsNothing reports whether v is the Nothing sentinel.
func IsNothing(v bson.RawValue) bool {
	return len(v.Value) == 0 && v.Type == 0
}
