package graph

import (
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// convertNeo4jResult converts Neo4j records and summary to our QueryResult format.
func convertNeo4jResult(keys []string, records []*neo4j.Record, summary neo4j.ResultSummary) QueryResult {
	result := QueryResult{
		Records: make([]map[string]any, 0, len(records)),
		Columns: keys,
	}
	if result.Columns == nil {
		result.Columns = []string{}
	}

	for _, record := range records {
		recordMap := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			recordMap[key] = normalizeValue(record.Values[i])
		}
		result.Records = append(result.Records, recordMap)
	}

	if summary != nil && summary.Counters() != nil {
		counters := summary.Counters()
		result.Summary = QuerySummary{
			NodesCreated:         counters.NodesCreated(),
			NodesDeleted:         counters.NodesDeleted(),
			RelationshipsCreated: counters.RelationshipsCreated(),
			RelationshipsDeleted: counters.RelationshipsDeleted(),
			PropertiesSet:        counters.PropertiesSet(),
		}
	}

	return result
}

// normalizeValue turns driver values into JSON-friendly ones. Nodes and
// relationships collapse to their property maps, the same shape a
// record.data() call gives in the other Neo4j drivers.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return normalizeMap(val.Props)
	case dbtype.Relationship:
		return normalizeMap(val.Props)
	case dbtype.Path:
		out := make([]any, 0, len(val.Nodes)+len(val.Relationships))
		for i, n := range val.Nodes {
			out = append(out, normalizeMap(n.Props))
			if i < len(val.Relationships) {
				out = append(out, val.Relationships[i].Type)
			}
		}
		return out
	case dbtype.Date:
		return val.Time().Format("2006-01-02")
	case dbtype.LocalTime:
		return val.Time().Format("15:04:05.999999999")
	case dbtype.LocalDateTime:
		return val.Time().Format("2006-01-02T15:04:05.999999999")
	case dbtype.Time:
		return val.Time().Format("15:04:05.999999999Z07:00")
	case dbtype.Duration:
		return val.String()
	case dbtype.Point2D:
		return map[string]any{"srid": val.SpatialRefId, "x": val.X, "y": val.Y}
	case dbtype.Point3D:
		return map[string]any{"srid": val.SpatialRefId, "x": val.X, "y": val.Y, "z": val.Z}
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case map[string]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// orderedKeys lists rec's keys: those named in columns first, in column
// order, then any remaining keys sorted.
func orderedKeys(rec map[string]any, columns []string) []string {
	keys := make([]string, 0, len(rec))
	seen := make(map[string]struct{}, len(rec))
	for _, c := range columns {
		if _, ok := rec[c]; ok {
			if _, dup := seen[c]; !dup {
				keys = append(keys, c)
				seen[c] = struct{}{}
			}
		}
	}
	var rest []string
	for k := range rec {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
