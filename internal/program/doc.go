// Package program loads declarative factlog programs and installs them into
// an engine.Store.
//
// A program declares attributes, base facts, rules and named queries, in
// YAML or CUE:
//
//	attributes:
//	  - {key: person/age, type: int}
//	facts:
//	  - [1, person/age, 30]
//	rules:
//	  - name: adult
//	    when: [["?id", person/age, "?age"]]
//	    where: ["?age >= 18"]
//	    then: [["?id", person/tag, adult]]
//	queries:
//	  - name: adults
//	    find: [["?id", person/tag, adult]]
//
// Term syntax inside triples:
//   - "?name" is a variable
//   - "#name" in an entity or value slot is the token named name; the same
//     name always yields the same token
//   - other strings, ints and bools are literals; floats are rejected
//
// Strings are NFC normalized at load so equal-looking literals are equal.
//
// Compilation validates range restriction: every variable used in then or
// where must be bound by when.
package program
