package evaluator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/imp-lang/imp/pkg/ast"
)

// Outcome tells the driver whether to keep going after a unit.
type Outcome int

const (
	// Continue means the unit ran to completion.
	Continue Outcome = iota
	// Halt means exit() ran; the driver stops processing further units.
	Halt
)

func (o Outcome) String() string {
	if o == Halt {
		return "halt"
	}
	return "continue"
}

// Options configures one evaluation.
type Options struct {
	Logger zerolog.Logger
	Budget Budget
}

type evaluator struct {
	ctx     context.Context
	m       *Machine
	log     zerolog.Logger
	budget  Budget
	tracker BudgetTracker
}

// Evaluate runs node against m. A statement leaves the stack depth unchanged;
// an expression leaves exactly one more value on it. Errors abort at the point
// raised without rolling back effects already performed.
func Evaluate(ctx context.Context, node ast.Node, m *Machine, opts Options) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ev := &evaluator{
		ctx:    ctx,
		m:      m,
		log:    opts.Logger,
		budget: opts.Budget,
	}

	switch n := node.(type) {
	case ast.Stmt:
		return ev.exec(n)
	case ast.Expr:
		return Continue, ev.eval(n)
	case nil:
		return Continue, nil
	default:
		return Continue, fmt.Errorf("evaluator: unsupported node %T", node)
	}
}

// --- Statements ---

func (ev *evaluator) exec(stmt ast.Stmt) (Outcome, error) {
	switch s := stmt.(type) {
	case *ast.Command:
		return ev.execCommand(s)

	case *ast.CommandList:
		for _, cmd := range s.Commands {
			out, err := ev.execCommand(cmd)
			if err != nil || out == Halt {
				return out, err
			}
		}
		return Continue, nil

	case *ast.DeclStmt:
		if err := ev.m.Declare(s.Type, s.Name.Name); err != nil {
			return Continue, at(err, s.Span)
		}
		if s.Init != nil {
			return Continue, ev.assign(s.Name, s.Init, s.Span)
		}
		return Continue, nil

	case *ast.AssignStmt:
		return Continue, ev.assign(s.Target, s.Value, s.Span)

	case *ast.IfStmt:
		cond, err := ev.condition(s.Cond)
		if err != nil {
			return Continue, err
		}
		if cond {
			return ev.execCommand(s.Then)
		}
		if s.Else != nil {
			return ev.execCommand(s.Else)
		}
		return Continue, nil

	case *ast.WhileStmt:
		return ev.execWhile(s)

	case *ast.ForStmt:
		return ev.execFor(s)

	case *ast.WriteStmt:
		if err := ev.eval(s.Value); err != nil {
			return Continue, err
		}
		return Continue, at(ev.m.Write(), s.Span)

	case *ast.ExitStmt:
		ev.log.Trace().Msg("exit")
		return Halt, nil

	case *ast.ExprStmt:
		if err := ev.eval(s.Expr); err != nil {
			return Continue, err
		}
		_, err := ev.m.Pop()
		return Continue, at(err, s.Span)

	case nil:
		return Continue, nil

	default:
		return Continue, fmt.Errorf("evaluator: unsupported statement %T", stmt)
	}
}

// execCommand runs one command. A block opens a frame that is closed again
// however the block exits.
func (ev *evaluator) execCommand(cmd *ast.Command) (Outcome, error) {
	if cmd == nil || cmd.Stmt == nil {
		return Continue, nil
	}
	list, isBlock := cmd.Block()
	if !isBlock {
		return ev.exec(cmd.Stmt)
	}

	ev.m.EnterScope()
	ev.log.Trace().Int("scope", ev.m.ScopeDepth()).Msg("enter scope")
	defer func() {
		ev.log.Trace().Int("scope", ev.m.ScopeDepth()).Msg("leave scope")
		ev.m.LeaveScope()
	}()
	return ev.exec(list)
}

// assign evaluates value and copies it into the variable named by target.
func (ev *evaluator) assign(target *ast.Ident, value ast.Expr, span ast.Span) error {
	if err := ev.eval(value); err != nil {
		return err
	}
	dst, err := ev.m.Lookup(target.Name)
	if err != nil {
		return at(err, target.Span)
	}
	v, err := ev.m.Pop()
	if err != nil {
		return at(err, span)
	}
	if dst.Kind != v.Kind {
		return at(errTypeMismatch(), span)
	}
	*dst = v
	return nil
}

// condition evaluates cond, pops it and reports whether it is nonzero.
func (ev *evaluator) condition(cond ast.Expr) (bool, error) {
	if cond == nil {
		return true, nil
	}
	if err := ev.eval(cond); err != nil {
		return false, err
	}
	v, err := ev.m.Pop()
	if err != nil {
		return false, at(err, cond.NodeSpan())
	}
	if !v.IsInt() {
		return false, at(errNotBoolInt(), cond.NodeSpan())
	}
	return v.Truthy(), nil
}

// iterate is called before every loop body runs.
func (ev *evaluator) iterate(span ast.Span) error {
	if err := ev.ctx.Err(); err != nil {
		return err
	}
	return at(ev.tracker.tick(ev.budget), span)
}

func (ev *evaluator) execWhile(s *ast.WhileStmt) (Outcome, error) {
	var n int64
	defer func() { ev.log.Trace().Int64("iterations", n).Msg("while done") }()

	for {
		cond, err := ev.condition(s.Cond)
		if err != nil || !cond {
			return Continue, err
		}
		if err := ev.iterate(s.Span); err != nil {
			return Continue, err
		}
		n++
		out, err := ev.execCommand(s.Body)
		if err != nil || out == Halt {
			return out, err
		}
	}
}

func (ev *evaluator) execFor(s *ast.ForStmt) (Outcome, error) {
	if s.Init != nil {
		out, err := ev.exec(s.Init)
		if err != nil || out == Halt {
			return out, err
		}
	}

	var n int64
	defer func() { ev.log.Trace().Int64("iterations", n).Msg("for done") }()

	for {
		cond, err := ev.condition(s.Cond)
		if err != nil || !cond {
			return Continue, err
		}
		if err := ev.iterate(s.Span); err != nil {
			return Continue, err
		}
		n++
		out, err := ev.execCommand(s.Body)
		if err != nil || out == Halt {
			return out, err
		}
		if s.After != nil {
			out, err := ev.exec(s.After)
			if err != nil || out == Halt {
				return out, err
			}
		}
	}
}

// --- Expressions ---

func (ev *evaluator) eval(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.Constant:
		if e.Type == ast.TypeString {
			ev.m.Push(StringValue(e.Str))
		} else {
			ev.m.Push(IntValue(e.Int))
		}
		return nil

	case *ast.Ident:
		v, err := ev.m.Lookup(e.Name)
		if err != nil {
			return at(err, e.Span)
		}
		ev.m.Push(*v)
		return nil

	case *ast.UnaryExpr:
		return ev.evalUnary(e)

	case *ast.BinaryExpr:
		return ev.evalBinary(e)

	case *ast.ReadExpr:
		var err error
		switch e.Read {
		case ast.ReadInt:
			err = ev.m.ReadInt()
		case ast.ReadWord:
			err = ev.m.ReadWord()
		case ast.ReadLine:
			err = ev.m.ReadLine()
		}
		return at(err, e.Span)

	default:
		return fmt.Errorf("evaluator: unsupported expression %T", expr)
	}
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr) error {
	if err := ev.eval(e.Operand); err != nil {
		return err
	}
	v, err := ev.m.Pop()
	if err != nil {
		return at(err, e.Span)
	}
	switch e.Op {
	case ast.OpNeg:
		if !v.IsInt() {
			return at(errNotInt(), e.Span)
		}
		ev.m.Push(IntValue(-v.Int))
	case ast.OpNot:
		if !v.IsInt() {
			return at(errNotBoolInt(), e.Span)
		}
		ev.m.Push(BoolValue(!v.Truthy()))
	default:
		return fmt.Errorf("evaluator: unknown unary operator %q", e.Op)
	}
	return nil
}

// evalBinary evaluates both operands, left first, with no short-circuit.
func (ev *evaluator) evalBinary(e *ast.BinaryExpr) error {
	if err := ev.eval(e.Left); err != nil {
		return err
	}
	if err := ev.eval(e.Right); err != nil {
		return err
	}

	right, err := ev.m.Top(0)
	if err != nil {
		return at(err, e.Span)
	}
	left, err := ev.m.Top(1)
	if err != nil {
		return at(err, e.Span)
	}
	if !left.IsInt() || !right.IsInt() {
		if e.Op.Arithmetic() {
			return at(errNotInt(), e.Span)
		}
		return at(errNotBoolInt(), e.Span)
	}

	result, err := binaryOp(e.Op, left.Int, right.Int)
	if err != nil {
		return at(err, e.Span)
	}
	ev.m.Truncate(ev.m.Depth() - 2)
	ev.m.Push(result)
	return nil
}

func binaryOp(op ast.BinaryOp, l, r int64) (Value, error) {
	switch op {
	case ast.OpAdd:
		return IntValue(l + r), nil
	case ast.OpSub:
		return IntValue(l - r), nil
	case ast.OpMul:
		return IntValue(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return Value{}, errDivZero()
		}
		return IntValue(l / r), nil
	case ast.OpAnd:
		return BoolValue(l != 0 && r != 0), nil
	case ast.OpOr:
		return BoolValue(l != 0 || r != 0), nil
	case ast.OpEqEq:
		return BoolValue(l == r), nil
	case ast.OpNeq:
		return BoolValue(l != r), nil
	case ast.OpLt:
		return BoolValue(l < r), nil
	case ast.OpGt:
		return BoolValue(l > r), nil
	case ast.OpLtEq:
		return BoolValue(l <= r), nil
	case ast.OpGtEq:
		return BoolValue(l >= r), nil
	}
	return Value{}, fmt.Errorf("evaluator: unknown binary operator %q", op)
}
