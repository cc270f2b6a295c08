// Package classify decides which rule, if any, a document belongs to.
//
// The Orchestrator is the single entry point. It consults a primary
// Classifier (normally the LLM-backed one) when that classifier reports
// ready, waits for readiness up to a timeout when configured to, and
// otherwise falls back to keyword matching over the rule prompts. Files
// classified by the fallback while the primary was unavailable are recorded
// in a FallbackTracker so the workflow can replay them once the primary
// becomes ready.
//
// Only one primary inference runs at a time; the orchestrator serializes
// calls with a weighted semaphore of size one.
package classify
