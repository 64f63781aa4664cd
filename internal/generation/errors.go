package generation

import "errors"

// Request lifecycle failures. None of these are retried automatically;
// they all leave the pending marker cleared so the caller may re-invoke.
var (
	// ErrAlreadyInFlight rejects a second request while one is pending.
	// No webhook call is made for the rejected request.
	ErrAlreadyInFlight = errors.New("a generation request is already in flight")

	// ErrWebhook means the worker never accepted the job.
	ErrWebhook = errors.New("generation webhook call failed")

	// ErrGeneration means the worker accepted the job and later reported
	// a failure through the document store.
	ErrGeneration = errors.New("generation worker reported an error")

	// ErrTimedOut means no terminal record appeared within the watch
	// timeout. Shown to the user like a generation error, kept distinct
	// for diagnostics.
	ErrTimedOut = errors.New("generation timed out")
)
