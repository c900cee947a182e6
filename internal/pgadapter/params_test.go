package pgadapter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/agentfirst-data/afpsql/internal/aerr"
)

func raw(v string) json.RawMessage { return json.RawMessage(v) }

func TestBuildParamsCountMismatch(t *testing.T) {
	_, err := buildParams([]json.RawMessage{raw(`1`)}, []uint32{pgtype.Int4OID, pgtype.Int4OID})
	var e *aerr.E
	if !errors.As(err, &e) || e.Code != aerr.InvalidParams {
		t.Fatalf("expected aerr.InvalidParams, got %v", err)
	}
}

func TestBuildParamsConvertsByOID(t *testing.T) {
	params, err := buildParams(
		[]json.RawMessage{raw(`42`), raw(`"hello"`), raw(`true`), raw(`null`)},
		[]uint32{pgtype.Int4OID, pgtype.TextOID, pgtype.BoolOID, pgtype.Int4OID},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params[0] != int32(42) {
		t.Errorf("params[0] = %v (%T), want int32(42)", params[0], params[0])
	}
	if params[1] != "hello" {
		t.Errorf("params[1] = %v, want hello", params[1])
	}
	if params[2] != true {
		t.Errorf("params[2] = %v, want true", params[2])
	}
	if params[3] != nil {
		t.Errorf("params[3] = %v, want nil", params[3])
	}
}

func TestBuildParamsInt2Overflow(t *testing.T) {
	_, err := buildParams([]json.RawMessage{raw(`100000`)}, []uint32{pgtype.Int2OID})
	var e *aerr.E
	if !errors.As(err, &e) || e.Code != aerr.InvalidParams {
		t.Fatalf("expected aerr.InvalidParams for int2 overflow, got %v", err)
	}
}

func TestBuildParamsJSONBPassesThroughAsBytes(t *testing.T) {
	params, err := buildParams([]json.RawMessage{raw(`{"a":1}`)}, []uint32{pgtype.JSONBOID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := params[0].([]byte)
	if !ok {
		t.Fatalf("expected []byte, got %T", params[0])
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["a"] != float64(1) {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestBuildParamsInvalidJSON(t *testing.T) {
	_, err := buildParams([]json.RawMessage{raw(`not json`)}, []uint32{pgtype.TextOID})
	var e *aerr.E
	if !errors.As(err, &e) || e.Code != aerr.InvalidParams {
		t.Fatalf("expected aerr.InvalidParams, got %v", err)
	}
}
