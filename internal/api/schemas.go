package api

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const airportCodePattern = `^[A-Za-z0-9]{3,4}$`

const flightSchemaTemplate = `{
  "type": "object",
  "required": ["departure", "arrival"],
  "additionalProperties": false,
  "properties": {
    "departure": {"type": "string", "pattern": %[1]q},
    "arrival": {"type": "string", "pattern": %[1]q},
    "waypoints": {
      "type": "array",
      "maxItems": %[2]d,
      "items": {"type": "string", "pattern": %[1]q}
    },
    "planned_at": {"type": ["string", "null"], "format": "date-time"},
    "notes": {"type": "string", "maxLength": 500}
  }
}`

const briefingSchemaTemplate = `{
  "type": "object",
  "required": ["airports"],
  "properties": {
    "airports": {
      "type": "array",
      "maxItems": %[2]d,
      "items": {"type": "string", "pattern": %[1]q}
    }
  }
}`

type schemas struct {
	flight   *gojsonschema.Schema
	briefing *gojsonschema.Schema
}

func newSchemas(maxWaypoints int) (*schemas, error) {
	flight, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(
		fmt.Sprintf(flightSchemaTemplate, airportCodePattern, maxWaypoints)))
	if err != nil {
		return nil, fmt.Errorf("failed to compile flight schema: %w", err)
	}
	brief, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(
		fmt.Sprintf(briefingSchemaTemplate, airportCodePattern, maxWaypoints+2)))
	if err != nil {
		return nil, fmt.Errorf("failed to compile briefing schema: %w", err)
	}
	return &schemas{flight: flight, briefing: brief}, nil
}

// validate returns the schema violations of body, or a single parse error
func validate(schema *gojsonschema.Schema, body []byte) []string {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return []string{fmt.Sprintf("invalid JSON: %v", err)}
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs
}
