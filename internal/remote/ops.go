package remote

// OpKind identifies a field operation.
type OpKind string

// Field operations supported by Update.
const (
	OpSet         OpKind = "set"
	OpArrayUnion  OpKind = "arrayUnion"
	OpArrayRemove OpKind = "arrayRemove"
	OpIncrement   OpKind = "increment"
	OpDelete      OpKind = "delete"
)

// FieldOp is one field mutation applied by Update.
type FieldOp struct {
	Kind   OpKind
	Field  string
	Value  any
	Values []any
	Delta  float64
}

type serverTimestamp struct{}

// ServerTimestamp is a field value replaced by the commit time when written.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// SetField replaces field with value.
func SetField(field string, value any) FieldOp {
	return FieldOp{Kind: OpSet, Field: field, Value: value}
}

// ArrayUnion adds each value to the array field unless already present.
func ArrayUnion(field string, values ...any) FieldOp {
	return FieldOp{Kind: OpArrayUnion, Field: field, Values: values}
}

// ArrayRemove removes every occurrence of each value from the array field.
func ArrayRemove(field string, values ...any) FieldOp {
	return FieldOp{Kind: OpArrayRemove, Field: field, Values: values}
}

// Increment adds delta to a numeric field, treating a missing field as 0.
func Increment(field string, delta float64) FieldOp {
	return FieldOp{Kind: OpIncrement, Field: field, Delta: delta}
}

// DeleteField removes field.
func DeleteField(field string) FieldOp {
	return FieldOp{Kind: OpDelete, Field: field}
}

// SetFields turns a partial field map into Set operations.
func SetFields(fields map[string]any) []FieldOp {
	ops := make([]FieldOp, 0, len(fields))
	for k, v := range fields {
		ops = append(ops, SetField(k, v))
	}
	return ops
}
