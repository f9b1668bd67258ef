package log

import (
	"fmt"

	"go.uber.org/zap"
)

// toFields turns the variadic arguments of the logging calls into zap
// fields. Arguments are read as key-value pairs, except that a zap.Field or
// an error may stand alone. Unpaired values and non-string keys are kept
// under synthetic keys rather than dropped.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i+1 == len(args) {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2
		if k, ok := key.(string); ok {
			// zap.Any picks the typed constructor for known types.
			fields = append(fields, zap.Any(k, val))
			continue
		}
		fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{"key": key, "value": val}))
	}
	return fields
}
