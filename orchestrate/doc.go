// Package orchestrate drives multi-agent conversations. The Orchestrator
// owns the round-robin scheduling policy, conclusion detection via the
// in-band marker, turn-limit and round-cap enforcement, prompt
// construction, and failure propagation across a multi-round exchange.
//
// One run is a single sequential control flow: agents speak one at a
// time, in participant order, because each prompt is a function of every
// turn appended before it. A session and its turn log are owned by at
// most one in-flight run; concurrent starts against the same session are
// rejected with RUN_IN_PROGRESS. The in-process lock does not coordinate
// across processes; deployments running multiple replicas must serialize
// starts per session themselves.
package orchestrate
