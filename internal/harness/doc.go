// Package harness runs YAML scenarios against the bridge backed by the
// vendor simulator.
//
// A scenario seeds the simulator from a fixture, then drives the bridge
// through a list of steps. Each step either calls an operation:
//
//	- call: AEPIdentity.getExperienceCloudId
//	  expect:
//	    result: "ecid-123"
//
// or presents an in-app message, which parks until a later
// AEPMessaging.setMessageSettings step answers it:
//
//	- call: AEPMessaging.setMessagingDelegate
//	- present: m-1
//	- call: AEPMessaging.setMessageSettings
//	  args: [true, false]
//
// Everything observable is recorded in a trace: boundary calls with their
// results or error codes, emitted events, vendor invocations seen by the
// simulator, and presentation outcomes. Events reach the trace at step
// boundaries only, which keeps traces identical between runs. Traces are
// compared with golden files under testdata/golden.
//
// Every run gets a fresh simulator and a private in-memory journal, so
// journal_count assertions only see that run's calls.
package harness
