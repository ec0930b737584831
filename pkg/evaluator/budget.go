package evaluator

// Budget holds the resource limits for one evaluation. Zero means unlimited.
type Budget struct {
	MaxIterations int64
}

// BudgetTracker tracks resource consumption during evaluation.
type BudgetTracker struct {
	Iterations int64
}

// tick counts one loop iteration against b.
func (t *BudgetTracker) tick(b Budget) error {
	t.Iterations++
	if b.MaxIterations > 0 && t.Iterations > b.MaxIterations {
		return errBudget(b.MaxIterations)
	}
	return nil
}
