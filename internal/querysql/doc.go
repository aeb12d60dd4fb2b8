// Package querysql evaluates conjunctive pattern queries with SQLite.
//
// A query is compiled into one self-join over the facts table, one alias
// per pattern. Every slot is stored as a (kind, text) pair so values of
// different variants never compare equal:
//
//	s  String   raw text
//	i  Int      decimal
//	b  Bool     "true" / "false"
//	t  Token    canonical UUID text
//	k  Keyword  attribute key
//
// The attribute column always has kind k, so a variable that appears in
// the attribute slot and in a value slot joins only against keywords.
//
// Results are ordered by the insertion sequence of each alias in turn,
// which reproduces the order the nested-loop evaluator yields. The SQL
// backend exists to cross-check that evaluator; it is not persistence.
package querysql
