package transporthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"papertrade/internal/trader"
)

// tradeRequestSchema guards the execute endpoint: shape and ranges are
// rejected before the engine ever sees the request.
const tradeRequestSchema = `{
  "type": "object",
  "required": ["type", "symbol", "quantity"],
  "properties": {
    "type": {"enum": ["buy", "sell"]},
    "symbol": {"type": "string", "minLength": 1, "maxLength": 12},
    "quantity": {"type": "number", "minimum": 1},
    "orderType": {"enum": ["market", "limit"]},
    "limitPrice": {"type": "number", "minimum": 0},
    "stopLoss": {"type": "number", "minimum": 0},
    "takeProfit": {"type": "number", "minimum": 0}
  },
  "additionalProperties": false
}`

func compileTradeSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("trade_request.json", strings.NewReader(tradeRequestSchema)); err != nil {
		panic(err)
	}
	return c.MustCompile("trade_request.json")
}

// validateTradeBody checks raw against the schema and returns a
// trader.ErrValidation-wrapped error naming the first violation.
func validateTradeBody(schema *jsonschema.Schema, raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", trader.ErrValidation)
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", trader.ErrValidation, flattenCause(ve))
		}
		return fmt.Errorf("%w: %v", trader.ErrValidation, err)
	}
	return nil
}

func flattenCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
