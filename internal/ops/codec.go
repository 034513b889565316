package ops

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/roach88/gridcore/internal/ir"
)

// Marshal encodes op as a flat JSON object tagged with its kind.
func Marshal(op Operation) ([]byte, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", op.Kind(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", op.Kind(), err)
	}
	tag, _ := json.Marshal(op.Kind())
	fields["type"] = tag
	return json.Marshal(fields)
}

// Unmarshal decodes one tagged operation.
func Unmarshal(data []byte) (Operation, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal operation: %w", err)
	}
	switch head.Type {
	case KindSetCellValues:
		return decode[SetCellValues](data)
	case KindSetCellFormats:
		return decode[SetCellFormats](data)
	case KindSetBorders:
		return decode[SetBorders](data)
	case KindSetDataTable:
		return decode[SetDataTable](data)
	case KindComputeCode:
		return decode[ComputeCode](data)
	case KindResizeColumn:
		return decode[ResizeColumn](data)
	case KindResizeRow:
		return decode[ResizeRow](data)
	case KindResizeRows:
		return decode[ResizeRows](data)
	case KindInsertColumn:
		return decode[InsertColumn](data)
	case KindDeleteColumn:
		return decode[DeleteColumn](data)
	case KindSetValidation:
		return decode[SetValidation](data)
	case KindRemoveValidation:
		return decode[RemoveValidation](data)
	case KindAddSheet:
		return decode[AddSheet](data)
	case KindDeleteSheet:
		return decode[DeleteSheet](data)
	case "":
		return nil, fmt.Errorf("unmarshal operation: missing type")
	default:
		return nil, fmt.Errorf("unmarshal operation: unknown type %q", head.Type)
	}
}

func decode[T Operation](data []byte) (Operation, error) {
	var op T
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", op.Kind(), err)
	}
	return op, nil
}

// MarshalList encodes operations as a JSON array.
func MarshalList(list []Operation) ([]byte, error) {
	raw := make([]json.RawMessage, len(list))
	for i, op := range list {
		b, err := Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}
		raw[i] = b
	}
	return json.Marshal(raw)
}

// UnmarshalList decodes a JSON array of operations.
func UnmarshalList(data []byte) ([]Operation, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal operations: %w", err)
	}
	out := make([]Operation, len(raw))
	for i, r := range raw {
		op, err := Unmarshal(r)
		if err != nil {
			return nil, fmt.Errorf("operations[%d]: %w", i, err)
		}
		out[i] = op
	}
	return out, nil
}

// Equal reports whether two operations are the same variant with the same
// fields.
func Equal(a, b Operation) bool {
	return reflect.DeepEqual(a, b)
}

// EqualLists compares two operation lists element by element.
func EqualLists(a, b []Operation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Fingerprint is the content hash of an operation list's canonical wire form.
func Fingerprint(list []Operation) (string, error) {
	raw, err := MarshalList(list)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	return ir.CanonicalHash(ir.DomainOperations, generic)
}

// Describe renders a short human-readable summary of op for logs and traces.
func Describe(op Operation) string {
	switch o := op.(type) {
	case SetCellValues:
		return fmt.Sprintf("%s %s %s", o.Kind(), o.SheetPos, o.Values.Size())
	case SetCellFormats:
		return fmt.Sprintf("%s %s", o.Kind(), o.SheetRect)
	case SetBorders:
		return fmt.Sprintf("%s %s", o.Kind(), o.SheetRect)
	case SetDataTable:
		if o.DataTable == nil {
			return fmt.Sprintf("%s %s remove", o.Kind(), o.SheetPos)
		}
		return fmt.Sprintf("%s %s %s index=%d", o.Kind(), o.SheetPos, o.DataTable, o.Index)
	case ComputeCode:
		return fmt.Sprintf("%s %s", o.Kind(), o.SheetPos)
	case ResizeColumn:
		return fmt.Sprintf("%s %s col=%d size=%g", o.Kind(), o.SheetID, o.Column, o.NewSize)
	case ResizeRow:
		return fmt.Sprintf("%s %s row=%d size=%g", o.Kind(), o.SheetID, o.Row, o.NewSize)
	case ResizeRows:
		return fmt.Sprintf("%s %s rows=%d", o.Kind(), o.SheetID, len(o.RowHeights))
	case InsertColumn:
		return fmt.Sprintf("%s %s col=%d", o.Kind(), o.SheetID, o.Column)
	case DeleteColumn:
		return fmt.Sprintf("%s %s col=%d", o.Kind(), o.SheetID, o.Column)
	case SetValidation:
		return fmt.Sprintf("%s %s id=%s", o.Kind(), o.Validation.SheetID, o.Validation.ID)
	case RemoveValidation:
		return fmt.Sprintf("%s %s id=%s", o.Kind(), o.SheetID, o.ValidationID)
	case AddSheet:
		return fmt.Sprintf("%s %s %q", o.Kind(), o.Sheet.ID, o.Sheet.Name)
	case DeleteSheet:
		return fmt.Sprintf("%s %s", o.Kind(), o.SheetID)
	default:
		return fmt.Sprintf("%T", op)
	}
}
