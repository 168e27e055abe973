package parser

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/chocowat/ast"
	"github.com/strager/chocowat/diag"
)

func TestParsePrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
		sexpr  string
	}{
		{
			name:   "declaration and assignment",
			source: "x: int = 1\nx = x + 1\nprint(x)",
			sexpr:  `(program (var "x" int (int 1)) (assign (name "x") (binary "+" (name "x") (int 1))) (expr (call "print" (name "x"))))`,
		},
		{
			name:   "function without return annotation",
			source: "def f(a: int, b: bool):\n  pass\n",
			sexpr:  `(program (def "f" (params (param "a" int) (param "b" bool)) none (pass)))`,
		},
		{
			name:   "bare return",
			source: "def f() -> int:\n  return\n",
			sexpr:  `(program (def "f" (params) int (return (none))))`,
		},
		{
			name:   "if elif else",
			source: "if a:\n  pass\nelif b:\n  x = 1\nelif c:\n  pass\nelse:\n  pass\n",
			sexpr:  `(program (if (name "a") (then (pass)) (elif (name "b") (assign (name "x") (int 1))) (elif (name "c") (pass)) (else (pass))))`,
		},
		{
			name:   "while",
			source: "while x < 3:\n  x = x + 1\n",
			sexpr:  `(program (while (binary "<" (name "x") (int 3)) (assign (name "x") (binary "+" (name "x") (int 1)))))`,
		},
		{
			name:   "operators",
			source: "a // b % c != (d - e) * f\nnot x is None\n",
			sexpr:  `(program (expr (binary "!=" (binary "%" (binary "//" (name "a") (name "b")) (name "c")) (binary "*" (binary "-" (name "d") (name "e")) (name "f")))) (expr (unary "not" (binary "is" (name "x") (none)))))`,
		},
		{
			name:   "negative literal",
			source: "x: int = -2147483648\ny = -x\n",
			sexpr:  `(program (var "x" int (int -2147483648)) (assign (name "y") (unary "-" (name "x"))))`,
		},
		{
			name:   "class",
			source: "class C(object):\n  a: int = 1\n  b: D = None\n  pass\n  def get(self: C) -> int:\n    return self.a\n",
			sexpr:  `(program (class "C" (fields (var "a" int (int 1)) (var "b" D (none))) (methods (def "get" (params (param "self" C)) int (return (field (name "self") "a"))))))`,
		},
		{
			name:   "fields and methods",
			source: "c.a = c.b.get(1, True)\n",
			sexpr:  `(program (assign (field (name "c") "a") (method (field (name "c") "b") "get" (int 1) (bool true))))`,
		},
		{
			name:   "string type annotation",
			source: "def f(n: 'Node') -> None:\n  pass\n",
			sexpr:  `(program (def "f" (params (param "n" Node)) none (pass)))`,
		},
		{
			name:   "comments",
			source: "# leading\nx: int = 1 # trailing\nif x == 1:\n  # inside\n  print(x)\n",
			sexpr:  `(program (var "x" int (int 1)) (if (binary "==" (name "x") (int 1)) (then (expr (call "print" (name "x")))) (else)))`,
		},
		{
			name:   "parenthesized",
			source: "x = (1 + 2) * -(3)\n",
			sexpr:  `(program (assign (name "x") (binary "*" (binary "+" (int 1) (int 2)) (unary "-" (int 3)))))`,
		},
		{
			name:   "empty program",
			source: "",
			sexpr:  `(program)`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stmts, err := Parse(test.source)
			be.Err(t, err, nil)
			be.Equal(t, test.sexpr, ast.ToSExpr(stmts))
		})
	}
}

func TestParseSpans(t *testing.T) {
	src := "x: int = 1\nprint(x)"
	stmts, err := Parse(src)
	be.Err(t, err, nil)
	be.Equal(t, 2, len(stmts))

	decl := stmts[0].(*ast.VarDecl)
	be.Equal(t, diag.Span{From: 0, To: 10}, decl.Span)
	be.Equal(t, diag.Span{From: 9, To: 10}, decl.Value.Pos())

	call := stmts[1].(*ast.ExprStmt).Expr.(*ast.Call)
	be.Equal(t, "print(x)", src[call.Span.From:call.Span.To])
}

func TestParseLeavesTypesUnset(t *testing.T) {
	stmts, err := Parse("1 + 2")
	be.Err(t, err, nil)
	expr := stmts[0].(*ast.ExprStmt).Expr
	be.True(t, !expr.Type().IsSet())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"for loop", "for i in x:\n  pass\n", "SyntaxError: unsupported statement for_statement"},
		{"break", "while True:\n  break\n", "SyntaxError: unsupported statement break_statement"},
		{"while else", "while x:\n  pass\nelse:\n  pass\n", "SyntaxError: unsupported clause else_clause"},
		{"augmented assignment", "x += 1\n", "SyntaxError: unsupported statement augmented_assignment"},
		{"string literal", "x = 'a'\n", "SyntaxError: unsupported expression string"},
		{"tuple", "1, 2\n", "SyntaxError: tuples are not supported"},
		{"true division", "x = 1 / 2\n", `SyntaxError: unsupported operator "/"`},
		{"logical and", "x = a and b\n", `SyntaxError: unsupported operator "and"`},
		{"membership", "x = a in b\n", `SyntaxError: unsupported operator "in"`},
		{"chained comparison", "x = 1 < 2 < 3\n", "SyntaxError: chained comparisons are not supported"},
		{"missing parameter type", "def f(a):\n  pass\n", "SyntaxError: missed type annotation for parameter a"},
		{"default parameter", "def f(a: int = 1):\n  pass\n", "SyntaxError: unsupported parameter typed_default_parameter"},
		{"inheritance", "class C(B):\n  pass\n", "SyntaxError: inheritance is not supported: B"},
		{"untyped field", "class C:\n  a = 1\n", "SyntaxError: class fields must be declared with a type"},
		{"class statement", "class C:\n  print(1)\n", "SyntaxError: unsupported class member call"},
		{"assign to subscript", "a[0] = 1\n", "SyntaxError: cannot assign to subscript"},
		{"declare field", "c.a: int = 1\n", "SyntaxError: only names can be declared, not attribute"},
		{"declaration without value", "x: int\n", "SyntaxError: declaration of x must have an initial value"},
		{"integer overflow", "x: int = 2147483648\n", "SyntaxError: integer literal 2147483648 does not fit in 32 bits"},
		{"hex literal", "x: int = 0x10\n", "SyntaxError: unsupported integer literal 0x10"},
		{"float literal", "x = 1.5\n", "SyntaxError: unsupported expression float"},
		{"call of expression", "(f)(1)\n", "SyntaxError: unsupported call target parenthesized_expression"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.source)
			be.True(t, diag.IsKind(err, diag.SyntaxError))
			be.Equal(t, test.message, err.Error())
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse("x = )")
	be.True(t, diag.IsKind(err, diag.SyntaxError))
	be.True(t, strings.HasPrefix(err.Error(), "SyntaxError: invalid syntax"))
	be.True(t, !diag.IsIncomplete(err))
}

func TestParseIncomplete(t *testing.T) {
	_, err := Parse("def f() -> int:\n")
	be.True(t, diag.IsIncomplete(err))
}

func TestParseErrorSpanNamesNode(t *testing.T) {
	src := "x: int = 1\nfor i in x:\n  pass\n"
	_, err := Parse(src)
	derr, ok := diag.As(err)
	be.True(t, ok)
	be.Equal(t, 11, derr.Span.From)
	be.Equal(t, "for", src[derr.Span.From:derr.Span.From+3])
}
