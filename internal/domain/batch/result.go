// Package batch holds per-document outcomes of a bulk write.
package batch

// ItemStatus is the processing outcome of a single bulk item.
type ItemStatus string

// Bulk item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of writing one document in a bulk operation.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful item result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed item result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the document identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Results summarizes a bulk write; order matches the submitted documents.
type Results []Result

// Succeeded counts items written.
func (rs Results) Succeeded() int {
	n := 0
	for _, r := range rs {
		if r.status == StatusOK {
			n++
		}
	}
	return n
}

// Failed counts items rejected by the store.
func (rs Results) Failed() int { return len(rs) - rs.Succeeded() }

// FirstError returns the first item failure; ok is false when every item succeeded.
func (rs Results) FirstError() (r Result, ok bool) {
	for _, item := range rs {
		if item.status == StatusError {
			return item, true
		}
	}
	return Result{}, false
}
