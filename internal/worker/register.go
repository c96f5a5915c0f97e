// Package worker wires the scoring workflow and activities into a Temporal worker.
package worker

import (
	"go.temporal.io/sdk/activity"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-ragscore/internal/scoring"
	"github.com/ahrav/go-ragscore/internal/workflow"
)

// Registrar is the subset of a Temporal worker used for registration.
type Registrar interface {
	RegisterWorkflow(w any)
	RegisterActivityWithOptions(a any, options activity.RegisterOptions)
}

var _ Registrar = sdkworker.Worker(nil)

// RegisterAll registers the evaluation workflow and the RunEvaluator activity.
// It must be called once, before the worker starts.
func RegisterAll(w Registrar, acts *scoring.Activities) {
	w.RegisterWorkflow(workflow.EvaluationWorkflow)
	w.RegisterActivityWithOptions(acts.RunEvaluator, activity.RegisterOptions{
		Name: workflow.RunEvaluatorActivity,
	})
}
