package ipc

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nstehr/vimy/hivemind/model"
)

// ErrInvalidPayload marks a message whose data does not match its schema.
var ErrInvalidPayload = errors.New("invalid payload")

//go:embed tick.schema.json
var tickSchemaSrc string

var tickSchema = jsonschema.MustCompileString("tick.schema.json", tickSchemaSrc)

// DecodeTick validates raw against the tick schema and decodes it. Schema
// failures wrap ErrInvalidPayload.
func DecodeTick(raw json.RawMessage) (model.Observation, error) {
	var obs model.Observation

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return obs, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := tickSchema.Validate(doc); err != nil {
		return obs, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(raw, &obs); err != nil {
		return obs, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return obs, nil
}
