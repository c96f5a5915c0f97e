// Package workflow defines the Temporal workflow that scores one generation.
//
// EvaluationWorkflow fans out one RunEvaluator activity per requested
// evaluator and collects the records of those that succeed. Activities are
// never retried; an evaluator that fails is logged, listed in the output,
// and contributes no records. Both the single-process orchestrator and the
// workflow therefore produce the same records for the same inputs.
//
// Workflow code must stay deterministic: all I/O, time, and randomness live in
// the scoring activities.
package workflow
