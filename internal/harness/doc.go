// Package harness runs YAML scenarios against a real factlog store.
//
// A scenario names a program file, a list of steps that mutate the store
// and a list of assertions about the settled result:
//
//	name: retraction_cascades
//	description: removing an age removes the derived tags
//	program: programs/people.yaml
//	steps:
//	  - retract: [[1, person/age, 30]]
//	assertions:
//	  - type: query
//	    query: [["?id", person/tag, adult]]
//	    results: [{id: "#carol"}]
//
// The program is installed first; the store is settled after installation
// and after every step, so assertions never race a recompute.
//
// Step kinds:
//   - assert: facts to add to the base partition
//   - retract: facts to remove from the base partition
//   - unregister: name of a program rule to remove
//
// Assertion kinds:
//   - query: bindings of a pattern list or a named program query
//     (order-insensitive unless ordered is set)
//   - contains / absent: a fact is or is not in a partition
//   - count: number of facts in a partition
//
// Golden snapshots (testdata/golden/<name>.golden) hold the canonical JSON
// of the final statements and the per-step partition sizes. Regenerate
// them with:
//
//	go test ./internal/harness -update
package harness
