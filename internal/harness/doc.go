// Package harness runs YAML fixture scenarios against a compiled IDL.
//
// A scenario names one IDL document and lists checks against the client
// surface generated from it. No chain is involved: account and event data
// come from the scenario, and instructions are only built, never sent.
//
// # Scenario Format
//
//	name: counter_state
//	description: "Counter account decodes and increment encodes"
//	idl: ../idls/legacy_counter.json   # relative to the scenario file
//	accounts:
//	  - account: Counter
//	    data_hex: "ffb004f5bcfd7c19..."  # or value: {...} to encode first
//	    expect: { count: 41 }           # subset of the decoded JSON
//	  - account: Counter
//	    data_hex: "0000000000000000"
//	    expect_error: DISCRIMINATOR_MISMATCH
//	events:
//	  - event: CounterChanged
//	    value: { count: 1 }
//	instructions:
//	  - instruction: increment
//	    args: [1, null]
//	    expect_hex: "0b12680968ae3b210100"
//	    expect: { by: 1 }
//	  - instruction: initialize
//	    args: { start: 0 }
//	    accounts: { authority: "..." }
//	    expect_accounts: ["<counter pda>", "...", "11111111111111111111111111111111"]
//
// expect is a subset match: every key given must be present with an equal
// value, and extra keys in the decoded value are ignored. Lists match
// element by element and must have the same length. Numbers compare by
// value: 41 matches 41.0 but not "41".
//
// expect_error names an error kind (see ir.ErrorKind). A check with
// expect_error passes only if the operation fails with that kind.
//
// # Golden Traces
//
// Every check appends a TraceEvent to the Result. RunWithGolden writes the
// trace as indented JSON and compares it with testdata/golden/<name>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counter.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
