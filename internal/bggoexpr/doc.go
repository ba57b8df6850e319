// Package bggoexpr holds the expression language shared by scene loading and
// node execution: the function table, the evaluation context builder and
// static analysis of expressions.
package bggoexpr
