package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// marshalOperations converts an operation list to canonical JSON TEXT.
// Empty and nil lists are both stored as "[]".
func marshalOperations(list []ops.Operation) (string, error) {
	raw, err := ops.MarshalList(list)
	if err != nil {
		return "", fmt.Errorf("marshal operations: %w", err)
	}
	data, err := ir.MarshalCanonical(json.RawMessage(raw))
	if err != nil {
		return "", fmt.Errorf("marshal operations: %w", err)
	}
	return string(data), nil
}

// unmarshalOperations parses TEXT written by marshalOperations.
func unmarshalOperations(data string) ([]ops.Operation, error) {
	if data == "" {
		return []ops.Operation{}, nil
	}
	list, err := ops.UnmarshalList([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal operations: %w", err)
	}
	return list, nil
}
