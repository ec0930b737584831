// Package formatter renders an imp AST back to source code.
package formatter

import (
	"strconv"
	"strings"

	"github.com/imp-lang/imp/pkg/ast"
)

const indent = "\t"

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpOr:   1,
	ast.OpAnd:  2,
	ast.OpEqEq: 3, ast.OpNeq: 3,
	ast.OpGt: 4, ast.OpLt: 4, ast.OpGtEq: 4, ast.OpLtEq: 4,
	ast.OpAdd: 5, ast.OpSub: 5,
	ast.OpMul: 6, ast.OpDiv: 6,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// operators are left-associative; a same-precedence right child was grouped
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format renders a command list, one top-level command per line.
func Format(list *ast.CommandList) string {
	if list == nil || len(list.Commands) == 0 {
		return ""
	}
	lines := make([]string, len(list.Commands))
	for i, cmd := range list.Commands {
		lines[i] = FormatCommand(cmd, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

// FormatCommand renders one command at the given indentation depth. The
// first line is indented; continuation lines carry their own indentation.
func FormatCommand(cmd *ast.Command, depth int) string {
	return strings.Repeat(indent, depth) + formatCommandBody(cmd, depth)
}

func formatCommandBody(cmd *ast.Command, depth int) string {
	if cmd == nil || cmd.Stmt == nil {
		return ";"
	}
	if list, ok := cmd.Block(); ok {
		return formatBlock(list, depth)
	}
	return formatStmt(cmd.Stmt, depth)
}

func formatBlock(list *ast.CommandList, depth int) string {
	if len(list.Commands) == 0 {
		return "{}"
	}
	lines := make([]string, 0, len(list.Commands)+2)
	lines = append(lines, "{")
	for _, cmd := range list.Commands {
		lines = append(lines, FormatCommand(cmd, depth+1))
	}
	lines = append(lines, strings.Repeat(indent, depth)+"}")
	return strings.Join(lines, "\n")
}

// formatBody renders a branch or loop body following a header such as
// "while (c)". Blocks stay on the header line; anything else moves to the
// next line one level deeper.
func formatBody(cmd *ast.Command, depth int) string {
	if cmd != nil {
		if _, ok := cmd.Block(); ok {
			return " " + formatCommandBody(cmd, depth)
		}
	}
	return "\n" + FormatCommand(cmd, depth+1)
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.IfStmt:
		out := "if (" + FormatExpr(stmt.Cond) + ")" + formatBody(stmt.Then, depth)
		if stmt.Else != nil {
			if _, ok := stmt.Then.Block(); ok {
				out += " else"
			} else {
				out += "\n" + prefix + "else"
			}
			out += formatBody(stmt.Else, depth)
		}
		return out
	case *ast.WhileStmt:
		return "while (" + FormatExpr(stmt.Cond) + ")" + formatBody(stmt.Body, depth)
	case *ast.ForStmt:
		var cond string
		if stmt.Cond != nil {
			cond = " " + FormatExpr(stmt.Cond)
		}
		var after string
		if stmt.After != nil {
			after = " " + formatSimple(stmt.After)
		}
		return "for (" + formatSimple(stmt.Init) + ";" + cond + ";" + after + ")" + formatBody(stmt.Body, depth)
	case *ast.CommandList:
		return formatBlock(stmt, depth)
	case *ast.Command:
		return formatCommandBody(stmt, depth)
	}
	return formatSimple(s) + ";"
}

// formatSimple renders a statement that may appear in a for header, without
// its terminator.
func formatSimple(s ast.Stmt) string {
	switch stmt := s.(type) {
	case nil:
		return ""
	case *ast.DeclStmt:
		out := stmt.Type.String() + " " + stmt.Name.Name
		if stmt.Init != nil {
			out += " = " + FormatExpr(stmt.Init)
		}
		return out
	case *ast.AssignStmt:
		return stmt.Target.Name + " = " + FormatExpr(stmt.Value)
	case *ast.WriteStmt:
		return "write(" + FormatExpr(stmt.Value) + ")"
	case *ast.ExitStmt:
		return "exit()"
	case *ast.ExprStmt:
		return FormatExpr(stmt.Expr)
	}
	return ""
}

// FormatExpr renders an expression with the minimum parentheses needed to
// parse back to the same tree.
func FormatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.Constant:
		if expr.Type == ast.TypeString {
			return quote(expr.Str)
		}
		return strconv.FormatInt(expr.Int, 10)
	case *ast.Ident:
		return expr.Name
	case *ast.ReadExpr:
		return expr.Read.Name() + "()"
	case *ast.UnaryExpr:
		operand := FormatExpr(expr.Operand)
		if _, ok := expr.Operand.(*ast.BinaryExpr); ok {
			operand = "(" + operand + ")"
		}
		return string(expr.Op) + operand
	case *ast.BinaryExpr:
		left := FormatExpr(expr.Left)
		if needsParens(expr.Left, expr.Op, false) {
			left = "(" + left + ")"
		}
		right := FormatExpr(expr.Right)
		if needsParens(expr.Right, expr.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(expr.Op) + " " + right
	}
	return ""
}

// quote renders s using only the escapes the lexer understands.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// HasComments reports whether source contains a // comment outside string
// literals. Comments are not kept in the AST, so formatting drops them.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch c := source[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case c == '\n':
			inString = false
		case !inString && c == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}
