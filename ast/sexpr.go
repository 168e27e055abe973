package ast

import (
	"strconv"
	"strings"
)

// ToSExpr converts a program to its s-expression representation. Spans and
// type annotations are not included.
func ToSExpr(stmts []Stmt) string {
	var sb strings.Builder
	sb.WriteString("(program")
	for _, s := range stmts {
		sb.WriteByte(' ')
		sb.WriteString(StmtToSExpr(s))
	}
	sb.WriteByte(')')
	return sb.String()
}

func StmtToSExpr(stmt Stmt) string {
	switch s := stmt.(type) {
	case *FuncDef:
		var params []string
		for _, p := range s.Params {
			params = append(params, "(param "+strconv.Quote(p.Name)+" "+p.Type.String()+")")
		}
		return "(def " + strconv.Quote(s.Name) + " (params" + joinPrefixed(params) + ") " + s.Ret.String() + blockToSExpr(s.Body) + ")"
	case *VarDecl:
		return "(var " + strconv.Quote(s.Name) + " " + s.Type.String() + " " + ExprToSExpr(s.Value) + ")"
	case *Assign:
		return "(assign " + ExprToSExpr(s.Target) + " " + ExprToSExpr(s.Value) + ")"
	case *If:
		result := "(if " + ExprToSExpr(s.If.Cond) + " (then" + blockToSExpr(s.If.Body) + ")"
		for _, arm := range s.Elif {
			result += " (elif " + ExprToSExpr(arm.Cond) + blockToSExpr(arm.Body) + ")"
		}
		return result + " (else" + blockToSExpr(s.Else) + "))"
	case *While:
		return "(while " + ExprToSExpr(s.Cond) + blockToSExpr(s.Body) + ")"
	case *Pass:
		return "(pass)"
	case *Return:
		return "(return " + ExprToSExpr(s.Value) + ")"
	case *ExprStmt:
		return "(expr " + ExprToSExpr(s.Expr) + ")"
	case *ClassDef:
		var fields, methods []string
		for _, f := range s.Fields {
			fields = append(fields, StmtToSExpr(f))
		}
		for _, m := range s.Methods {
			methods = append(methods, StmtToSExpr(m))
		}
		return "(class " + strconv.Quote(s.Name) + " (fields" + joinPrefixed(fields) + ") (methods" + joinPrefixed(methods) + "))"
	default:
		return ""
	}
}

func ExprToSExpr(expr Expr) string {
	switch e := expr.(type) {
	case *Literal:
		switch e.Kind {
		case LitInt:
			return "(int " + strconv.FormatInt(int64(e.Value), 10) + ")"
		case LitTrue:
			return "(bool true)"
		case LitFalse:
			return "(bool false)"
		default:
			return "(none)"
		}
	case *Name:
		return "(name " + strconv.Quote(e.Name) + ")"
	case *Unary:
		return "(unary " + strconv.Quote(string(e.Op)) + " " + ExprToSExpr(e.Expr) + ")"
	case *Binary:
		return "(binary " + strconv.Quote(string(e.Op)) + " " + ExprToSExpr(e.Left) + " " + ExprToSExpr(e.Right) + ")"
	case *Call:
		return "(call " + strconv.Quote(e.Name) + argsToSExpr(e.Args) + ")"
	case *GetField:
		return "(field " + ExprToSExpr(e.Obj) + " " + strconv.Quote(e.Field) + ")"
	case *MethodCall:
		return "(method " + ExprToSExpr(e.Obj) + " " + strconv.Quote(e.Method) + argsToSExpr(e.Args) + ")"
	default:
		return ""
	}
}

func blockToSExpr(stmts []Stmt) string {
	var parts []string
	for _, s := range stmts {
		parts = append(parts, StmtToSExpr(s))
	}
	return joinPrefixed(parts)
}

func argsToSExpr(args []Expr) string {
	var parts []string
	for _, a := range args {
		parts = append(parts, ExprToSExpr(a))
	}
	return joinPrefixed(parts)
}

// joinPrefixed joins parts with a leading space before each one.
func joinPrefixed(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
