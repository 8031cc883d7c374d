package ddo

import "fmt"

// Variable identifies one of the n decision variables of a problem, indexed
// 0..n-1.
type Variable int

// Decision pairs a variable with the value assigned to it. Values are
// signed so that problems whose domains are not naturally non-negative
// (e.g. a +1/-1 literal assignment) don't need an encoding trick.
type Decision struct {
	Variable Variable
	Value    int64
}

func (d Decision) String() string {
	return fmt.Sprintf("x%d=%d", d.Variable, d.Value)
}

// DecisionCallback receives one legal decision at a time from
// Problem.ForEachInDomain. The simplest implementation is a closure, the
// same way the original DP formulation's DecisionCallback trait is blanket
// implemented for any FnMut(Decision).
type DecisionCallback func(Decision)
