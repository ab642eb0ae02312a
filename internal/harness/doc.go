// Package harness runs filter resolution scenarios end to end.
//
// A scenario drives one intent through resolution, an optional human
// confirmation and compilation, then checks the outcome against the
// scenario's expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: northeast_business
//	description: "Region and predicate need confirmation, then compile"
//	schema:
//	  signature: orders-v1
//	  columns:
//	    - { name: state, type: VARCHAR }
//	    - { name: company, type: VARCHAR }
//	intent:
//	  logic: AND
//	  conditions:
//	    - { semantic_key: northeast, target_column: state }
//	    - { semantic_key: BUSINESS_RECIPIENT, target_column: "" }
//	confirm: true
//	expect:
//	  status: NEEDS_CONFIRMATION
//	  pending_terms: [BUSINESS_RECIPIENT, northeast]
//	  final_status: RESOLVED
//	  where_sql: '...'
//	  params: [...]
//
// The intent is the filter tree root. When schema.signature is empty it is
// derived from the columns.
//
// # Deterministic Testing
//
// Every scenario runs with:
//   - A DeterministicClock starting at testutil.Epoch
//   - The fixed testutil.TestSecret signing key
//   - A fresh in-memory confirmation store keyed by a fixed session ID
//
// Tokens are therefore byte-identical across runs, and golden snapshots of
// the outcome stay stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/northeast.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
