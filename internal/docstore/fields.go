package docstore

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/layarapp/layar-server/internal/remote"
)

// canonical converts v to the shape it has after a JSON round trip, so
// values supplied by callers compare equal to values read from storage.
func canonical(v any) (any, error) {
	if remote.IsServerTimestamp(v) {
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode field value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode field value: %w", err)
	}
	return out, nil
}

func resolveValue(v any, now time.Time) (any, error) {
	if remote.IsServerTimestamp(v) {
		return now.Format(time.RFC3339Nano), nil
	}
	return canonical(v)
}

func resolveFields(fields map[string]any, now time.Time) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		resolved, err := resolveValue(v, now)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func applyOps(current map[string]any, ops []remote.FieldOp, now time.Time) (map[string]any, error) {
	fields := maps.Clone(current)
	if fields == nil {
		fields = map[string]any{}
	}

	for _, op := range ops {
		switch op.Kind {
		case remote.OpSet:
			v, err := resolveValue(op.Value, now)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", op.Field, err)
			}
			fields[op.Field] = v

		case remote.OpDelete:
			delete(fields, op.Field)

		case remote.OpIncrement:
			n, _ := fields[op.Field].(float64)
			fields[op.Field] = n + op.Delta

		case remote.OpArrayUnion:
			arr := arrayField(fields, op.Field)
			for _, raw := range op.Values {
				v, err := canonical(raw)
				if err != nil {
					return nil, err
				}
				if !slices.ContainsFunc(arr, func(e any) bool { return reflect.DeepEqual(e, v) }) {
					arr = append(arr, v)
				}
			}
			fields[op.Field] = arr

		case remote.OpArrayRemove:
			arr := arrayField(fields, op.Field)
			for _, raw := range op.Values {
				v, err := canonical(raw)
				if err != nil {
					return nil, err
				}
				arr = slices.DeleteFunc(arr, func(e any) bool { return reflect.DeepEqual(e, v) })
			}
			fields[op.Field] = arr

		default:
			return nil, fmt.Errorf("unknown field operation %q", op.Kind)
		}
	}
	return fields, nil
}

// arrayField returns a copy of an array field; non-array values start empty.
func arrayField(fields map[string]any, field string) []any {
	arr, _ := fields[field].([]any)
	return append([]any{}, arr...)
}
