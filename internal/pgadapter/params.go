package pgadapter

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/agentfirst-data/afpsql/internal/aerr"
)

// buildParams converts the JSON values a `query` request carries into the
// Go types pgx expects for each parameter, using the prepared statement's
// own parameter OIDs to pick the conversion, never by inspecting SQL text.
// Mirrors db.rs's build_params.
func buildParams(raw []json.RawMessage, paramOIDs []uint32) ([]any, error) {
	if len(raw) != len(paramOIDs) {
		return nil, aerr.New(aerr.InvalidParams, fmt.Sprintf(
			"placeholder count mismatch: sql requires %d, params provided %d", len(paramOIDs), len(raw)))
	}

	out := make([]any, len(raw))
	for i, r := range raw {
		var v any
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d is not valid JSON", i+1))
		}

		oid := paramOIDs[i]
		converted, err := convertParam(v, oid, i+1)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

func convertParam(v any, oid uint32, pos int) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch oid {
	case pgtype.JSONOID, pgtype.JSONBOID:
		return json.Marshal(v)
	case pgtype.BoolOID:
		return paramBool(v, pos)
	case pgtype.Int2OID:
		n, err := paramInt(v, pos)
		if err != nil {
			return nil, err
		}
		if n < -1<<15 || n > 1<<15-1 {
			return nil, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d out of range for int2", pos))
		}
		return int16(n), nil
	case pgtype.Int4OID:
		n, err := paramInt(v, pos)
		if err != nil {
			return nil, err
		}
		if n < -1<<31 || n > 1<<31-1 {
			return nil, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d out of range for int4", pos))
		}
		return int32(n), nil
	case pgtype.Int8OID:
		return paramInt(v, pos)
	case pgtype.Float4OID:
		f, err := paramFloat(v, pos)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case pgtype.Float8OID, pgtype.NumericOID:
		return paramFloat(v, pos)
	default:
		return paramText(v), nil
	}
}

func paramBool(v any, pos int) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d cannot parse as bool", pos))
		}
		return parsed, nil
	default:
		return false, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d cannot parse as bool", pos))
	}
}

func paramInt(v any, pos int) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d cannot parse as int8", pos))
		}
		return parsed, nil
	default:
		return 0, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d cannot parse as int8", pos))
	}
}

func paramFloat(v any, pos int) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d cannot parse as float8", pos))
		}
		return parsed, nil
	default:
		return 0, aerr.New(aerr.InvalidParams, fmt.Sprintf("param $%d cannot parse as float8", pos))
	}
}

// paramText stringifies anything that falls through to a text-typed
// placeholder, matching db.rs's parse_text: strings pass through and
// everything else is re-encoded as its JSON text form. A JSON null never
// reaches here: convertParam maps it to SQL NULL first.
func paramText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(s)
		return string(b)
	}
}
