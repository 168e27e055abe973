package codegen

import "github.com/strager/chocowat/ast"

// FieldSize is the byte size of every field; all values are i32.
const FieldSize = 4

// Layout maps the fields of a class to byte offsets from the object
// address. Size is the number of heap bytes an object takes.
type Layout struct {
	Offsets map[string]int
	Size    int
}

// ComputeLayout places fields in declaration order at a 4-byte stride
// starting at offset 0. Initializer values do not affect the layout.
// A class without fields still takes one slot so that each instance has
// its own address.
func ComputeLayout(class *ast.ClassDef) Layout {
	layout := Layout{Offsets: make(map[string]int, len(class.Fields))}
	for _, field := range class.Fields {
		layout.Offsets[field.Name] = layout.Size
		layout.Size += FieldSize
	}
	layout.Size = max(layout.Size, FieldSize)
	return layout
}
