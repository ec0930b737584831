// Package ast defines the imp language AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// Type is the resolved type tag carried by constants and declarations.
type Type int

const (
	TypeInt Type = iota
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	}
	return "unknown"
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpAnd  BinaryOp = "&&"
	OpOr   BinaryOp = "||"
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
	OpLt   BinaryOp = "<"
	OpGt   BinaryOp = ">"
	OpLtEq BinaryOp = "<="
	OpGtEq BinaryOp = ">="
)

// Arithmetic reports whether op is one of the pure-int operators (+ - * /).
// The others treat their int operands as booleans.
func (op BinaryOp) Arithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	}
	return false
}

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// ReadKind selects the token a read primitive pulls from the input buffer.
type ReadKind int

const (
	ReadInt ReadKind = iota
	ReadWord
	ReadLine
)

// Name returns the source-level builtin name.
func (k ReadKind) Name() string {
	switch k {
	case ReadWord:
		return "read_word"
	case ReadLine:
		return "read_line"
	}
	return "read_int"
}

// --- Expr is the interface for all expression nodes ---
// Evaluating an Expr leaves exactly one more value on the operand stack.

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---
// Evaluating a Stmt leaves the operand stack depth unchanged.

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Expressions ---

// Constant is a literal with its type tag already resolved.
type Constant struct {
	Span Span
	Type Type
	Int  int64
	Str  string
}

func (n *Constant) Kind() string   { return "Constant" }
func (n *Constant) NodeSpan() Span { return n.Span }
func (n *Constant) exprNode()      {}

// IntConst builds an int constant.
func IntConst(v int64, span Span) *Constant {
	return &Constant{Span: span, Type: TypeInt, Int: v}
}

// StrConst builds a string constant.
func StrConst(s string, span Span) *Constant {
	return &Constant{Span: span, Type: TypeString, Str: s}
}

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

// ReadExpr is one of read_int(), read_word(), read_line().
type ReadExpr struct {
	Span Span
	Read ReadKind
}

func (n *ReadExpr) Kind() string   { return "ReadExpr" }
func (n *ReadExpr) NodeSpan() Span { return n.Span }
func (n *ReadExpr) exprNode()      {}

// --- Statements ---

type AssignStmt struct {
	Span   Span
	Target *Ident
	Value  Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

// DeclStmt declares Name with Type; Init is nil when there is no initializer.
type DeclStmt struct {
	Span Span
	Type Type
	Name *Ident
	Init Expr
}

func (n *DeclStmt) Kind() string   { return "DeclStmt" }
func (n *DeclStmt) NodeSpan() Span { return n.Span }
func (n *DeclStmt) stmtNode()      {}

type IfStmt struct {
	Span Span
	Cond Expr
	Then *Command
	Else *Command // optional
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type WhileStmt struct {
	Span Span
	Cond Expr
	Body *Command
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) stmtNode()      {}

// ForStmt is for (Init; Cond; After) Body. Any of Init, Cond, After may be nil;
// a nil Cond is always true.
type ForStmt struct {
	Span  Span
	Init  Stmt
	Cond  Expr
	After Stmt
	Body  *Command
}

func (n *ForStmt) Kind() string   { return "ForStmt" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) stmtNode()      {}

type WriteStmt struct {
	Span  Span
	Value Expr
}

func (n *WriteStmt) Kind() string   { return "WriteStmt" }
func (n *WriteStmt) NodeSpan() Span { return n.Span }
func (n *WriteStmt) stmtNode()      {}

type ExitStmt struct {
	Span Span
}

func (n *ExitStmt) Kind() string   { return "ExitStmt" }
func (n *ExitStmt) NodeSpan() Span { return n.Span }
func (n *ExitStmt) stmtNode()      {}

// ExprStmt evaluates Expr for its side effects and drops the result.
type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

// --- Commands ---

// Command wraps a single statement. When Stmt is a *CommandList the command is a
// block and opens a scope frame; a nil Stmt is the empty command ";".
type Command struct {
	Span Span
	Stmt Stmt
}

func (n *Command) Kind() string   { return "Command" }
func (n *Command) NodeSpan() Span { return n.Span }
func (n *Command) stmtNode()      {}

// Block reports whether the command wraps a braced command list.
func (n *Command) Block() (*CommandList, bool) {
	list, ok := n.Stmt.(*CommandList)
	return list, ok
}

// CommandList is an ordered sequence of commands. It has no scope of its own.
type CommandList struct {
	Span     Span
	Commands []*Command
}

func (n *CommandList) Kind() string   { return "CommandList" }
func (n *CommandList) NodeSpan() Span { return n.Span }
func (n *CommandList) stmtNode()      {}
