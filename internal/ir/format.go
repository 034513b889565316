package ir

// Update is an optional change to a single attribute. A nil *Update means
// "leave unchanged"; an Update with a nil Value clears the attribute.
type Update[T any] struct {
	Value *T `json:"value"`
}

// Set returns an update that assigns v.
func Set[T any](v T) *Update[T] {
	return &Update[T]{Value: &v}
}

// Clear returns an update that removes the attribute.
func Clear[T any]() *Update[T] {
	return &Update[T]{}
}

// CellWrap controls text overflow for a cell.
type CellWrap string

const (
	WrapOverflow CellWrap = "overflow"
	WrapWrap     CellWrap = "wrap"
	WrapClip     CellWrap = "clip"
)

// Format is the complete format of one cell. A nil field is unset.
type Format struct {
	Bold          *bool     `json:"bold,omitempty"`
	Italic        *bool     `json:"italic,omitempty"`
	TextColor     *string   `json:"text_color,omitempty"`
	FillColor     *string   `json:"fill_color,omitempty"`
	Wrap          *CellWrap `json:"wrap,omitempty"`
	NumericFormat *string   `json:"numeric_format,omitempty"`
}

// IsDefault reports whether no attribute is set.
func (f Format) IsDefault() bool {
	return f.Bold == nil && f.Italic == nil && f.TextColor == nil &&
		f.FillColor == nil && f.Wrap == nil && f.NumericFormat == nil
}

// WrapsText reports whether the cell wraps its text.
func (f Format) WrapsText() bool {
	return f.Wrap != nil && *f.Wrap == WrapWrap
}

// FormatUpdate is a partial change to a cell's Format.
type FormatUpdate struct {
	Bold          *Update[bool]     `json:"bold,omitempty"`
	Italic        *Update[bool]     `json:"italic,omitempty"`
	TextColor     *Update[string]   `json:"text_color,omitempty"`
	FillColor     *Update[string]   `json:"fill_color,omitempty"`
	Wrap          *Update[CellWrap] `json:"wrap,omitempty"`
	NumericFormat *Update[string]   `json:"numeric_format,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u FormatUpdate) IsEmpty() bool {
	return u.Bold == nil && u.Italic == nil && u.TextColor == nil &&
		u.FillColor == nil && u.Wrap == nil && u.NumericFormat == nil
}

// AffectsRowHeight reports whether applying the update can change the
// rendered height of a row.
func (u FormatUpdate) AffectsRowHeight() bool {
	return u.Wrap != nil || u.NumericFormat != nil
}

// Apply applies u to f and returns the new format together with the update
// that restores f.
func (u FormatUpdate) Apply(f Format) (Format, FormatUpdate) {
	var undo FormatUpdate
	f.Bold, undo.Bold = applyField(f.Bold, u.Bold)
	f.Italic, undo.Italic = applyField(f.Italic, u.Italic)
	f.TextColor, undo.TextColor = applyField(f.TextColor, u.TextColor)
	f.FillColor, undo.FillColor = applyField(f.FillColor, u.FillColor)
	f.Wrap, undo.Wrap = applyField(f.Wrap, u.Wrap)
	f.NumericFormat, undo.NumericFormat = applyField(f.NumericFormat, u.NumericFormat)
	return f, undo
}

func applyField[T any](cur *T, u *Update[T]) (*T, *Update[T]) {
	if u == nil {
		return cur, nil
	}
	undo := &Update[T]{Value: cur}
	if u.Value == nil {
		return nil, undo
	}
	v := *u.Value
	return &v, undo
}

// FormatToUpdate returns the update that turns a default format into f,
// setting every field explicitly (cleared fields included).
func FormatToUpdate(f Format) FormatUpdate {
	return FormatUpdate{
		Bold:          &Update[bool]{Value: f.Bold},
		Italic:        &Update[bool]{Value: f.Italic},
		TextColor:     &Update[string]{Value: f.TextColor},
		FillColor:     &Update[string]{Value: f.FillColor},
		Wrap:          &Update[CellWrap]{Value: f.Wrap},
		NumericFormat: &Update[string]{Value: f.NumericFormat},
	}
}

// BorderLine is one edge of a cell border.
type BorderLine struct {
	Style string `json:"style"`
	Color string `json:"color"`
}

// Borders holds the four edges of a cell. A nil edge has no border.
type Borders struct {
	Top    *BorderLine `json:"top,omitempty"`
	Bottom *BorderLine `json:"bottom,omitempty"`
	Left   *BorderLine `json:"left,omitempty"`
	Right  *BorderLine `json:"right,omitempty"`
}

// IsEmpty reports whether no edge is set.
func (b Borders) IsEmpty() bool {
	return b.Top == nil && b.Bottom == nil && b.Left == nil && b.Right == nil
}
