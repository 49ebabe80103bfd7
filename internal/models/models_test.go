package models

import (
	"reflect"
	"strings"
	"testing"
)

func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	tag := f.Tag.Get("gorm")
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

func TestFeedback_Fields(t *testing.T) {
	typ := reflect.TypeOf(Feedback{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Type", "size:16")
	assertGormTag(t, typ, "Type", "index")
	assertGormTag(t, typ, "Message", "type:text")
	assertGormTag(t, typ, "Message", "not null")
	assertGormTag(t, typ, "Email", "size:254")
}

func TestValidEstimate(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{1, true},
		{13, true},
		{89, true},
		{EstimateUnknown, true},
		{0, false},
		{4, false},
		{-2, false},
		{100, false},
	}
	for _, tt := range tests {
		if got := ValidEstimate(tt.v); got != tt.want {
			t.Errorf("ValidEstimate(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestComputeStats_Empty(t *testing.T) {
	if s := ComputeStats(nil); s != nil {
		t.Errorf("ComputeStats(nil) = %+v, want nil", s)
	}
	onlyUnknown := []EstimationResult{{ParticipantID: "a", Estimate: EstimateUnknown}}
	if s := ComputeStats(onlyUnknown); s != nil {
		t.Errorf("ComputeStats(only unknown) = %+v, want nil", s)
	}
}

func TestComputeStats_OddCount(t *testing.T) {
	s := ComputeStats([]EstimationResult{
		{Estimate: 8},
		{Estimate: 3},
		{Estimate: 5},
		{Estimate: EstimateUnknown},
	})
	if s == nil {
		t.Fatal("expected stats")
	}
	if s.Count != 3 || s.Unknown != 1 {
		t.Errorf("Count/Unknown = %d/%d, want 3/1", s.Count, s.Unknown)
	}
	if s.Min != 3 || s.Max != 8 {
		t.Errorf("Min/Max = %v/%v, want 3/8", s.Min, s.Max)
	}
	if s.Median != 5 {
		t.Errorf("Median = %v, want 5", s.Median)
	}
	if s.Average != 5.3 {
		t.Errorf("Average = %v, want 5.3", s.Average)
	}
	if s.Consensus {
		t.Error("Consensus = true, want false")
	}
}

func TestComputeStats_EvenCountConsensus(t *testing.T) {
	s := ComputeStats([]EstimationResult{{Estimate: 5}, {Estimate: 5}})
	if s == nil {
		t.Fatal("expected stats")
	}
	if s.Median != 5 || s.Average != 5 {
		t.Errorf("Median/Average = %v/%v, want 5/5", s.Median, s.Average)
	}
	if !s.Consensus {
		t.Error("Consensus = false, want true")
	}

	s = ComputeStats([]EstimationResult{{Estimate: 2}, {Estimate: 3}, {Estimate: 5}, {Estimate: 8}})
	if s.Median != 4 {
		t.Errorf("Median = %v, want 4", s.Median)
	}
}

func TestStory_CloneIsDeep(t *testing.T) {
	orig := &Story{
		Title:              "Login flow",
		AcceptanceCriteria: []string{"a"},
		AIAnalysis:         &AIAnalysis{Complexity: "low", Tags: []string{"auth"}},
	}
	cp := orig.Clone()
	cp.AcceptanceCriteria[0] = "b"
	cp.AIAnalysis.Tags[0] = "ui"

	if orig.AcceptanceCriteria[0] != "a" {
		t.Error("clone shares AcceptanceCriteria")
	}
	if orig.AIAnalysis.Tags[0] != "auth" {
		t.Error("clone shares AIAnalysis.Tags")
	}
	var nilStory *Story
	if nilStory.Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestParticipant_CloneDetachesEstimate(t *testing.T) {
	v := 5.0
	p := Participant{ID: "p1", Estimate: &v}
	cp := p.Clone()
	*cp.Estimate = 8
	if *p.Estimate != 5 {
		t.Errorf("original estimate = %v, want 5", *p.Estimate)
	}
}

func TestRoomState_Participant(t *testing.T) {
	s := &RoomState{Participants: []Participant{{ID: "a", Name: "Alice"}}}
	if p, ok := s.Participant("a"); !ok || p.Name != "Alice" {
		t.Errorf("Participant(a) = %+v, %v", p, ok)
	}
	if _, ok := s.Participant("zz"); ok {
		t.Error("Participant(zz) should not be found")
	}
}
