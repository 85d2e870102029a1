package task

import "strings"

// Operation represents the type of task operation.
type Operation string

// Operation values for the task queue system.
const (
	OperationIngestRepository Operation = "codesense.ingestion.run"
	OperationDeleteRepository Operation = "codesense.repository.delete"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsIngestion returns true for ingestion pipeline operations.
func (o Operation) IsIngestion() bool {
	return strings.HasPrefix(string(o), "codesense.ingestion.")
}

// All returns every operation a worker must have a handler for.
func All() []Operation {
	return []Operation{
		OperationIngestRepository,
		OperationDeleteRepository,
	}
}
