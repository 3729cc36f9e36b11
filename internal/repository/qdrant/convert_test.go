package qdrant

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestSplitPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"text": "Amazing grace, how sweet the sound",
		"metadata": map[string]any{
			"id":   "chorus-001",
			"name": "Amazing Grace",
			"key":  int64(3),
		},
	})

	text, metadata := splitPayload(payload)

	if text != "Amazing grace, how sweet the sound" {
		t.Errorf("unexpected text: %q", text)
	}
	if metadata["id"] != "chorus-001" {
		t.Errorf("unexpected id: %v", metadata["id"])
	}
	if metadata["name"] != "Amazing Grace" {
		t.Errorf("unexpected name: %v", metadata["name"])
	}
	if metadata["key"] != int64(3) {
		t.Errorf("unexpected key: %v (%T)", metadata["key"], metadata["key"])
	}
}

func TestSplitPayload_MissingMetadata(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{"text": "orphan point"})

	text, metadata := splitPayload(payload)
	if text != "orphan point" {
		t.Errorf("unexpected text: %q", text)
	}
	if len(metadata) != 0 {
		t.Errorf("expected empty metadata, got %v", metadata)
	}
}

func TestRawPoint_ChorusID(t *testing.T) {
	p := RawPoint{Metadata: map[string]any{"id": "chorus-7"}}
	id, ok := p.ChorusID()
	if !ok || id != "chorus-7" {
		t.Errorf("got (%q, %v), want (chorus-7, true)", id, ok)
	}

	for name, md := range map[string]map[string]any{
		"missing": {},
		"empty":   {"id": ""},
		"non-string": {
			"id": 42,
		},
	} {
		t.Run(name, func(t *testing.T) {
			p := RawPoint{Metadata: md}
			if _, ok := p.ChorusID(); ok {
				t.Error("expected no chorus id")
			}
		})
	}
}

func TestPointIDFor_Deterministic(t *testing.T) {
	a := PointIDFor("chorus-001")
	b := PointIDFor("chorus-001")
	c := PointIDFor("chorus-002")

	if a != b {
		t.Errorf("same chorus id must map to the same point id: %q vs %q", a, b)
	}
	if a == c {
		t.Error("different chorus ids must map to different point ids")
	}
}

func TestPointIDString(t *testing.T) {
	if got := pointIDString(qdrant.NewIDUUID("11111111-2222-3333-4444-555555555555")); got != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("uuid id: got %q", got)
	}
	if got := pointIDString(qdrant.NewIDNum(42)); got != "42" {
		t.Errorf("numeric id: got %q", got)
	}
	if got := pointIDString(nil); got != "" {
		t.Errorf("nil id: got %q", got)
	}
}
