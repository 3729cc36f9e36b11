package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

// RawPoint is a stored point with its machine identifier, as needed by
// maintenance operations.
type RawPoint struct {
	PointID  string
	Text     string
	Metadata map[string]any
}

// ChorusID extracts the business identifier from the point metadata.
func (p RawPoint) ChorusID() (string, bool) {
	v, ok := p.Metadata["id"].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func scoredPointFromQdrant(p *qdrant.ScoredPoint) domain.ScoredPoint {
	text, metadata := splitPayload(p.Payload)
	return domain.ScoredPoint{
		Text:     text,
		Score:    p.Score,
		Metadata: metadata,
	}
}

func rawPointFromQdrant(p *qdrant.RetrievedPoint) RawPoint {
	text, metadata := splitPayload(p.Payload)
	return RawPoint{
		PointID:  pointIDString(p.Id),
		Text:     text,
		Metadata: metadata,
	}
}

// splitPayload unpacks the {"text": ..., "metadata": {...}} payload
// shape written by Upsert. Points written by other tools may lack the
// metadata submap; those come back with an empty metadata map.
func splitPayload(payload map[string]*qdrant.Value) (string, map[string]any) {
	text := ""
	metadata := map[string]any{}

	for key, v := range payload {
		switch key {
		case "text":
			if s, ok := valueToAny(v).(string); ok {
				text = s
			}
		case "metadata":
			if m, ok := valueToAny(v).(map[string]any); ok {
				metadata = m
			}
		}
	}
	return text, metadata
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch x := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return x.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", x.Num)
	}
	return ""
}

func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(val.StructValue.Fields))
		for k, f := range val.StructValue.Fields {
			out[k] = valueToAny(f)
		}
		return out
	case *qdrant.Value_ListValue:
		out := make([]any, 0, len(val.ListValue.Values))
		for _, item := range val.ListValue.Values {
			out = append(out, valueToAny(item))
		}
		return out
	}
	return nil
}
