package ast

// TypeKind discriminates the Type union.
type TypeKind int

const (
	// TypeUnset is the empty annotation slot of an unchecked expression.
	TypeUnset TypeKind = iota
	TypeInt
	TypeBool
	TypeNone
	TypeObject
)

// Type is Int, Bool, None or Object(Class).
type Type struct {
	Kind  TypeKind
	Class string // TypeObject only
}

var (
	Int  = Type{Kind: TypeInt}
	Bool = Type{Kind: TypeBool}
	None = Type{Kind: TypeNone}
)

// Object returns the type of instances of the named class.
func Object(class string) Type {
	return Type{Kind: TypeObject, Class: class}
}

func (t Type) IsSet() bool {
	return t.Kind != TypeUnset
}

func (t Type) IsObject() bool {
	return t.Kind == TypeObject
}

// IsReference reports whether values of t are heap addresses or the none
// sentinel, i.e. whether `is` applies to them.
func (t Type) IsReference() bool {
	return t.Kind == TypeObject || t.Kind == TypeNone
}

func (t Type) String() string {
	switch t.Kind {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeNone:
		return "none"
	case TypeObject:
		return t.Class
	default:
		return "<unset>"
	}
}

// IsAssignable reports whether a value of type src may be stored in a
// location declared as dst. None is assignable to every object type; there
// is no other subtyping.
func IsAssignable(dst, src Type) bool {
	if dst == src {
		return true
	}
	return dst.Kind == TypeObject && src.Kind == TypeNone
}
