/*
convert.go - Loose-value coercion at the engine boundary

PURPOSE:
  Reform documents and schema files arrive as decoded JSON, so override
  cells show up as json.Number, float64, int, bool, or string. This file
  converts those loose cells into typed Scalars, enforcing the parameter's
  declared value type. Booleans are never accepted for numeric parameters,
  so a stray true can never be read as 1 in a tax reform.

SEE ALSO:
  - reform.go: Uses CoerceCell during structural validation
  - schema.go: Uses CoerceCell when loading default values
*/
package params

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CoerceCell converts one loose cell into a Scalar of the given type.
func CoerceCell(v any, vt ValueType) (Scalar, error) {
	switch vt {
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return Scalar{}, fmt.Errorf("%w: %v is not a boolean", ErrTypeMismatch, v)
		}
		return Boolean(b), nil

	case TypeString:
		s, ok := v.(string)
		if !ok {
			return Scalar{}, fmt.Errorf("%w: %v is not a string", ErrTypeMismatch, v)
		}
		return Text(s), nil

	case TypeInteger:
		d, err := coerceNumber(v)
		if err != nil {
			return Scalar{}, err
		}
		if !d.Equal(d.Truncate(0)) {
			return Scalar{}, fmt.Errorf("%w: %s is not an integer", ErrTypeMismatch, d)
		}
		return Number(d), nil

	case TypeReal:
		d, err := coerceNumber(v)
		if err != nil {
			return Scalar{}, err
		}
		return Number(d), nil

	default:
		return Scalar{}, fmt.Errorf("%w: unknown value type %q", ErrTypeMismatch, vt)
	}
}

func coerceNumber(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, n.String())
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case decimal.Decimal:
		return n, nil
	case bool:
		// booleans are numbers in too many languages; not here
		return decimal.Zero, fmt.Errorf("%w: boolean given for a numeric parameter", ErrTypeMismatch)
	default:
		return decimal.Zero, fmt.Errorf("%w: %T is not a number", ErrTypeMismatch, v)
	}
}
