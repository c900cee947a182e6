package config

import (
	"testing"

	"github.com/agentfirst-data/afpsql/internal/protocol"
)

func TestApplyMergesSessionFieldsAndKeepsDefaultEntry(t *testing.T) {
	cur := Default()
	host := "db.internal"
	patch := Patch{
		Sessions: map[string]SessionSpec{
			"default": {Host: &host},
		},
	}

	next := Apply(cur, patch)
	if next.Sessions["default"].Host == nil || *next.Sessions["default"].Host != host {
		t.Fatalf("host not merged: %+v", next.Sessions["default"])
	}

	port := 5433
	patch2 := Patch{Sessions: map[string]SessionSpec{"default": {Port: &port}}}
	next2 := Apply(next, patch2)
	if next2.Sessions["default"].Host == nil || *next2.Sessions["default"].Host != host {
		t.Errorf("earlier merged field lost: %+v", next2.Sessions["default"])
	}
	if next2.Sessions["default"].Port == nil || *next2.Sessions["default"].Port != port {
		t.Errorf("port not merged: %+v", next2.Sessions["default"])
	}
}

func TestApplySwitchingDefaultSessionCreatesEmptyEntry(t *testing.T) {
	cur := Default()
	name := "analytics"
	next := Apply(cur, Patch{DefaultSession: &name})

	if next.DefaultSession != "analytics" {
		t.Fatalf("default_session = %v, want analytics", next.DefaultSession)
	}
	if _, ok := next.Sessions["analytics"]; !ok {
		t.Errorf("expected an empty Connection Spec seeded for the new default session")
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	cur := Default()
	rows := 50
	_ = Apply(cur, Patch{InlineMaxRows: &rows})
	if cur.InlineMaxRows != 1000 {
		t.Errorf("Apply mutated its input: InlineMaxRows = %d", cur.InlineMaxRows)
	}
}

func TestResolveDefaultsFromRuntime(t *testing.T) {
	rt := Default()
	ro := Resolve(rt, protocol.QueryOptions{})

	if ro.StatementTimeoutMS != rt.StatementTimeoutMS {
		t.Errorf("StatementTimeoutMS = %d, want %d", ro.StatementTimeoutMS, rt.StatementTimeoutMS)
	}
	if ro.BatchRows != 1000 || ro.BatchBytes != 262_144 {
		t.Errorf("unexpected batch defaults: %+v", ro)
	}
	if ro.ReadOnly {
		t.Errorf("ReadOnly should default to false")
	}
}

func TestResolveOverridesAndGuardsBatchBytes(t *testing.T) {
	rt := Default()
	small := 100
	ro := Resolve(rt, protocol.QueryOptions{BatchBytes: &small})
	if ro.BatchBytes != 1024 {
		t.Errorf("BatchBytes below floor should clamp to 1024, got %d", ro.BatchBytes)
	}

	zero := 0
	ro2 := Resolve(rt, protocol.QueryOptions{BatchRows: &zero})
	if ro2.BatchRows != 1000 {
		t.Errorf("non-positive BatchRows override should be ignored, got %d", ro2.BatchRows)
	}
}

func TestResolveSessionName(t *testing.T) {
	rt := Default()
	if got := ResolveSessionName(rt, nil); got != "default" {
		t.Errorf("ResolveSessionName(nil) = %v, want default", got)
	}
	requested := "analytics"
	if got := ResolveSessionName(rt, &requested); got != "analytics" {
		t.Errorf("ResolveSessionName(&analytics) = %v, want analytics", got)
	}
	empty := ""
	if got := ResolveSessionName(rt, &empty); got != "default" {
		t.Errorf("ResolveSessionName(&\"\") = %v, want default", got)
	}
}

func TestStoreSwapAndLoad(t *testing.T) {
	s := NewStore(Default())
	if s.Load().DefaultSession != "default" {
		t.Fatalf("unexpected initial snapshot")
	}
	next := Default()
	next.DefaultSession = "other"
	s.Swap(next)
	if s.Load().DefaultSession != "other" {
		t.Errorf("Swap did not publish new snapshot")
	}
}
