package protocol

import (
	"encoding/json"
	"testing"
)

func TestResultMarshalCarriesCode(t *testing.T) {
	body, err := json.Marshal(Result{CommandTag: "SELECT 1", Columns: []ColumnInfo{}, Rows: []json.RawMessage{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["code"] != string(CodeResult) {
		t.Errorf("code = %v, want %v", out["code"], CodeResult)
	}
	if out["command_tag"] != "SELECT 1" {
		t.Errorf("command_tag = %v, want SELECT 1", out["command_tag"])
	}
}

func TestErrorMarshalOmitsNilID(t *testing.T) {
	body, err := json.Marshal(Error{ErrorCode: "invalid_request", Message: "bad", Trace: OnlyDuration(5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := out["id"]; present {
		t.Errorf("expected id to be omitted, got %v", out["id"])
	}
	if out["code"] != string(CodeError) {
		t.Errorf("code = %v, want %v", out["code"], CodeError)
	}
}

func TestConfigMarshalWrapsArbitraryPayload(t *testing.T) {
	body, err := json.Marshal(Config{Config: map[string]any{"default_session": "default"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Code   string         `json:"code"`
		Config map[string]any `json:"config"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Code != string(CodeConfig) {
		t.Errorf("code = %v, want %v", out.Code, CodeConfig)
	}
	if out.Config["default_session"] != "default" {
		t.Errorf("config payload not preserved: %+v", out.Config)
	}
}
