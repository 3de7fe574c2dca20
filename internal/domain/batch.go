package domain

import "net/http"

// Per-item messages reported in an update batch
const (
	MsgMissingID    = "Each update object must contain a valid _id"
	MsgUpdateError  = "Error changing the data"
	MsgInvalidEmail = "Invalid email format"
)

// UpdateSuccess is one applied item of an update batch
type UpdateSuccess struct {
	Status          int       `json:"status"`
	UpdatedEmployee *Employee `json:"updatedEmployee"`
}

// UpdateError is one rejected item of an update batch
type UpdateError struct {
	Status  int    `json:"status"`
	Message string `json:"error"`
	// ID echoes the item identifier when one was supplied
	ID string `json:"_id,omitempty"`
}

// BatchUpdateResult partitions an update batch. Every input item lands in exactly one bucket.
type BatchUpdateResult struct {
	SuccessfulUpdates []UpdateSuccess `json:"successfulUpdates"`
	Errors            []UpdateError   `json:"errors"`
}

// NewBatchUpdateResult returns a result with both buckets non-nil so they encode as []
func NewBatchUpdateResult() *BatchUpdateResult {
	return &BatchUpdateResult{
		SuccessfulUpdates: []UpdateSuccess{},
		Errors:            []UpdateError{},
	}
}

// Len is the number of items accounted for
func (r *BatchUpdateResult) Len() int {
	return len(r.SuccessfulUpdates) + len(r.Errors)
}

// NotFound builds the 404 item for id
func NotFound(id string) UpdateError {
	return UpdateError{Status: http.StatusNotFound, Message: "Employee with id " + id + " not found", ID: id}
}
