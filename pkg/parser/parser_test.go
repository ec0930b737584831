package parser_test

import (
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imp-lang/imp/pkg/ast"
	"github.com/imp-lang/imp/pkg/diagnostics"
	"github.com/imp-lang/imp/pkg/parser"
)

// helper: parse source and assert no diagnostics
func mustParse(t *testing.T, source string) *ast.CommandList {
	t.Helper()
	prog, diags := parser.Parse(source, "test.imp")
	require.Empty(t, diags, "unexpected diagnostics: %v", diags)
	require.NotNil(t, prog)
	return prog
}

// helper: parse source and return its diagnostics, asserting there are some
func mustFail(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, diags := parser.Parse(source, "test.imp")
	require.NotEmpty(t, diags, "expected parse to fail with diagnostics, but it succeeded")
	assert.Nil(t, prog)
	return diags
}

// helper: the single top-level statement of source
func singleStmt(t *testing.T, source string) ast.Stmt {
	t.Helper()
	prog := mustParse(t, source)
	require.Len(t, prog.Commands, 1)
	return prog.Commands[0].Stmt
}

// helper: the expression of a single write(expr); statement
func writtenExpr(t *testing.T, expr string) ast.Expr {
	t.Helper()
	w, ok := singleStmt(t, "write("+expr+");").(*ast.WriteStmt)
	require.True(t, ok)
	return w.Value
}

// ---- 1. Literals ----

func TestIntConstant(t *testing.T) {
	tests := []struct {
		source string
		want   int64
	}{
		{"0", 0},
		{"42", 42},
		{"9223372036854775807", 9223372036854775807},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			c, ok := writtenExpr(t, tt.source).(*ast.Constant)
			require.True(t, ok)
			assert.Equal(t, ast.TypeInt, c.Type)
			assert.Equal(t, tt.want, c.Int)
		})
	}
}

func TestStringConstant(t *testing.T) {
	c, ok := writtenExpr(t, `"hi there"`).(*ast.Constant)
	require.True(t, ok)
	assert.Equal(t, ast.TypeString, c.Type)
	assert.Equal(t, "hi there", c.Str)
}

func TestIntConstantOutOfRange(t *testing.T) {
	diags := mustFail(t, "write(9223372036854775808);")
	assert.Equal(t, diagnostics.EParse, diags[0].Code)
	assert.Contains(t, diags[0].Message, "out of range")
}

// ---- 2. Operators and precedence ----

func TestPrecedence(t *testing.T) {
	// 1 + 2 * 3 == 7 || x && !y
	e := writtenExpr(t, "1 + 2 * 3 == 7 || x && !y")

	or, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpOr, or.Op)

	eq, ok := or.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpEqEq, eq.Op)

	add, ok := eq.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, add.Op)
	mul, ok := add.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)

	and, ok := or.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAnd, and.Op)
	not, ok := and.Right.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNot, not.Op)
}

func TestLeftAssociativity(t *testing.T) {
	// 10 - 3 - 2 parses as (10 - 3) - 2
	outer, ok := writtenExpr(t, "10 - 3 - 2").(*ast.BinaryExpr)
	require.True(t, ok)
	inner, ok := outer.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpSub, inner.Op)
	assert.Equal(t, int64(2), outer.Right.(*ast.Constant).Int)
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	mul, ok := writtenExpr(t, "(1 + 2) * 3").(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)
	_, ok = mul.Left.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestRelationalOperators(t *testing.T) {
	tests := []struct {
		src string
		op  ast.BinaryOp
	}{
		{"a < b", ast.OpLt},
		{"a > b", ast.OpGt},
		{"a <= b", ast.OpLtEq},
		{"a >= b", ast.OpGtEq},
		{"a == b", ast.OpEqEq},
		{"a != b", ast.OpNeq},
		{"a / b", ast.OpDiv},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			bin, ok := writtenExpr(t, tt.src).(*ast.BinaryExpr)
			require.True(t, ok)
			assert.Equal(t, tt.op, bin.Op)
		})
	}
}

func TestUnaryMinusNests(t *testing.T) {
	outer, ok := writtenExpr(t, "--x").(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNeg, outer.Op)
	inner, ok := outer.Operand.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNeg, inner.Op)
}

// ---- 3. Statements ----

func TestDeclaration(t *testing.T) {
	decl, ok := singleStmt(t, "int x = 5;").(*ast.DeclStmt)
	require.True(t, ok)
	assert.Equal(t, ast.TypeInt, decl.Type)
	assert.Equal(t, "x", decl.Name.Name)
	require.NotNil(t, decl.Init)
	assert.Equal(t, int64(5), decl.Init.(*ast.Constant).Int)

	decl, ok = singleStmt(t, "string s;").(*ast.DeclStmt)
	require.True(t, ok)
	assert.Equal(t, ast.TypeString, decl.Type)
	assert.Nil(t, decl.Init)
}

func TestAssignment(t *testing.T) {
	a, ok := singleStmt(t, "x = x + 1;").(*ast.AssignStmt)
	require.True(t, ok)
	assert.Equal(t, "x", a.Target.Name)
	_, ok = a.Value.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestExprStatement(t *testing.T) {
	es, ok := singleStmt(t, "read_int();").(*ast.ExprStmt)
	require.True(t, ok)
	r, ok := es.Expr.(*ast.ReadExpr)
	require.True(t, ok)
	assert.Equal(t, ast.ReadInt, r.Read)
}

func TestReadPrimitives(t *testing.T) {
	for _, kind := range []ast.ReadKind{ast.ReadInt, ast.ReadWord, ast.ReadLine} {
		t.Run(kind.Name(), func(t *testing.T) {
			r, ok := writtenExpr(t, kind.Name()+"()").(*ast.ReadExpr)
			require.True(t, ok)
			assert.Equal(t, kind, r.Read)
		})
	}
}

func TestExit(t *testing.T) {
	_, ok := singleStmt(t, "exit();").(*ast.ExitStmt)
	assert.True(t, ok)
}

func TestEmptyCommand(t *testing.T) {
	prog := mustParse(t, ";;")
	require.Len(t, prog.Commands, 2)
	assert.Nil(t, prog.Commands[0].Stmt)
}

func TestIfElse(t *testing.T) {
	s, ok := singleStmt(t, "if (y == 0) write(1); else write(0);").(*ast.IfStmt)
	require.True(t, ok)
	_, ok = s.Cond.(*ast.BinaryExpr)
	assert.True(t, ok)
	_, ok = s.Then.Stmt.(*ast.WriteStmt)
	assert.True(t, ok)
	require.NotNil(t, s.Else)
	_, ok = s.Else.Stmt.(*ast.WriteStmt)
	assert.True(t, ok)
}

func TestDanglingElseBindsInnermost(t *testing.T) {
	outer, ok := singleStmt(t, "if (a) if (b) write(1); else write(2);").(*ast.IfStmt)
	require.True(t, ok)
	assert.Nil(t, outer.Else)
	inner, ok := outer.Then.Stmt.(*ast.IfStmt)
	require.True(t, ok)
	assert.NotNil(t, inner.Else)
}

func TestWhileWithBlock(t *testing.T) {
	w, ok := singleStmt(t, "while (i < 3) { write(i); i = i + 1; }").(*ast.WhileStmt)
	require.True(t, ok)
	list, isBlock := w.Body.Block()
	require.True(t, isBlock)
	assert.Len(t, list.Commands, 2)
}

func TestFor(t *testing.T) {
	f, ok := singleStmt(t, "for (i = 0; i < 10; i = i + 1) write(i);").(*ast.ForStmt)
	require.True(t, ok)
	_, ok = f.Init.(*ast.AssignStmt)
	assert.True(t, ok)
	_, ok = f.Cond.(*ast.BinaryExpr)
	assert.True(t, ok)
	_, ok = f.After.(*ast.AssignStmt)
	assert.True(t, ok)
	_, ok = f.Body.Stmt.(*ast.WriteStmt)
	assert.True(t, ok)
}

func TestForWithDeclarationAndEmptyClauses(t *testing.T) {
	f, ok := singleStmt(t, "for (int i = 0;;) exit();").(*ast.ForStmt)
	require.True(t, ok)
	_, ok = f.Init.(*ast.DeclStmt)
	assert.True(t, ok)
	assert.Nil(t, f.Cond)
	assert.Nil(t, f.After)

	f, ok = singleStmt(t, "for (;;) ;").(*ast.ForStmt)
	require.True(t, ok)
	assert.Nil(t, f.Init)
	assert.Nil(t, f.Body.Stmt)
}

func TestNestedBlocks(t *testing.T) {
	src := heredoc.Doc(`
		{
			int a = 1;
			{
				int b = 2;
				write(a + b);
			}
		}
	`)
	prog := mustParse(t, src)
	require.Len(t, prog.Commands, 1)
	outer, ok := prog.Commands[0].Block()
	require.True(t, ok)
	require.Len(t, outer.Commands, 2)
	inner, ok := outer.Commands[1].Block()
	require.True(t, ok)
	assert.Len(t, inner.Commands, 2)
}

func TestMultipleTopLevelStatements(t *testing.T) {
	prog := mustParse(t, "int x = 5; write(x); x = 2;")
	assert.Len(t, prog.Commands, 3)
}

func TestSpans(t *testing.T) {
	prog := mustParse(t, "int x;\nwrite(x);")
	require.Len(t, prog.Commands, 2)
	span := prog.Commands[1].Span
	assert.Equal(t, "test.imp", span.File)
	assert.Equal(t, 2, span.StartLine)
	assert.Equal(t, 1, span.StartCol)
}

// ---- 4. Errors ----

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"missing semicolon before next stmt", "int x = 1 write(x);"},
		{"missing paren", "write 1;"},
		{"bad declaration name", "int 5 = 3;"},
		{"stray else", "else write(1);"},
		{"unbalanced close brace", "}"},
		{"exit with argument", "exit(1);"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := mustFail(t, tt.source)
			assert.Equal(t, diagnostics.EParse, diags[0].Code)
			assert.NotNil(t, diags[0].Span)
		})
	}
}

func TestIncompleteInput(t *testing.T) {
	tests := []string{
		"int x = ",
		"write(1)",
		"{ write(1);",
		"while (i < 3",
		"if (x) ",
		"for (i = 0; i < 3;",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			diags := mustFail(t, src)
			assert.True(t, diagnostics.Incomplete(diags), "got %v", diags)
		})
	}
}

func TestLexErrorSurfacesAsDiagnostic(t *testing.T) {
	diags := mustFail(t, "int x = 1 & 2;")
	assert.Equal(t, diagnostics.ELex, diags[0].Code)
}
