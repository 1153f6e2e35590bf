// errors_helper.go migration specific error constructors
package migration

import (
	"github.com/kitabu/kitabu-go/internal/errors"
)

// stepError creates a step-level error carried on the step status.
func stepError(err error, step StepID, context ...any) error {
	builder := errors.New(err).
		Component("migration").
		Category(errors.CategoryImport).
		Context("step", string(step))

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// fatalError creates a run-aborting error.
func fatalError(err error, reason string) error {
	return errors.New(err).
		Component("migration").
		Category(errors.CategoryState).
		Priority(errors.PriorityCritical).
		Context("reason", reason).
		Build()
}
