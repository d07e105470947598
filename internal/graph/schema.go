package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kg-road/roadrag/internal/types"
)

const (
	nodePropertiesQuery = `CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes
RETURN nodeLabels, propertyName, propertyTypes`

	relPropertiesQuery = `CALL db.schema.relTypeProperties()
YIELD relType, propertyName, propertyTypes
RETURN relType, propertyName, propertyTypes`

	patternsQuery = `MATCH (a)-[r]->(b)
WITH DISTINCT labels(a) AS from, type(r) AS rel, labels(b) AS to
RETURN from, rel, to
LIMIT $limit`
)

// Schema describes the labels, relationship types and connection patterns
// present in the graph.
type Schema struct {
	Nodes         map[string]map[string]string `json:"nodes"`
	Relationships map[string]map[string]string `json:"relationships"`
	Patterns      []string                     `json:"patterns"`
}

// String renders the schema as indented JSON, the form embedded in prompts.
func (s Schema) String() string {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DescribeSchema introspects the graph through client using the built-in
// db.schema procedures. maxPatterns bounds the relationship pattern scan.
func DescribeSchema(ctx context.Context, client GraphClient, maxPatterns int) (Schema, error) {
	schema := Schema{
		Nodes:         map[string]map[string]string{},
		Relationships: map[string]map[string]string{},
		Patterns:      []string{},
	}

	nodes, err := client.Query(ctx, nodePropertiesQuery, nil)
	if err != nil {
		return Schema{}, types.WrapError(ErrCodeGraphSchemaFailed, "failed to read node properties", err)
	}
	for _, rec := range nodes.Records {
		for _, label := range stringList(rec["nodeLabels"]) {
			addProperty(schema.Nodes, label, rec["propertyName"], rec["propertyTypes"])
		}
	}

	rels, err := client.Query(ctx, relPropertiesQuery, nil)
	if err != nil {
		return Schema{}, types.WrapError(ErrCodeGraphSchemaFailed, "failed to read relationship properties", err)
	}
	for _, rec := range rels.Records {
		// relType comes back as ":`HAS_PLAN`"
		relType := strings.Trim(fmt.Sprint(rec["relType"]), ":`")
		addProperty(schema.Relationships, relType, rec["propertyName"], rec["propertyTypes"])
	}

	if maxPatterns <= 0 {
		maxPatterns = 100
	}
	patterns, err := client.Query(ctx, patternsQuery, map[string]any{"limit": maxPatterns})
	if err != nil {
		return Schema{}, types.WrapError(ErrCodeGraphSchemaFailed, "failed to read relationship patterns", err)
	}
	for _, rec := range patterns.Records {
		schema.Patterns = append(schema.Patterns, fmt.Sprintf("(:%s)-[:%v]->(:%s)",
			strings.Join(stringList(rec["from"]), ":"), rec["rel"], strings.Join(stringList(rec["to"]), ":")))
	}
	sort.Strings(schema.Patterns)

	return schema, nil
}

func addProperty(into map[string]map[string]string, owner string, name, propTypes any) {
	if owner == "" {
		return
	}
	props, ok := into[owner]
	if !ok {
		props = map[string]string{}
		into[owner] = props
	}
	if name == nil {
		return
	}
	props[fmt.Sprint(name)] = strings.Join(stringList(propTypes), "|")
}

func stringList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(val)}
	}
}
