package engine

import "errors"

// Sentinel errors returned by Submit before any network activity.
var (
	// ErrBusy rejects a submission attempted while another request is in
	// flight. Submissions are never queued.
	ErrBusy = errors.New("a request is already in flight")

	// ErrEmptyPrompt rejects a submission with neither prompt text nor
	// attachments.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrOffline rejects a submission while the connectivity hook reports no
	// network. The relay is never contacted.
	ErrOffline = errors.New("You are offline. Please check your network and try again.")

	// ErrAttachmentTooLarge rejects a file over the per-attachment size cap
	// at capture time.
	ErrAttachmentTooLarge = errors.New("attachment exceeds the 5MB limit")
)

// ModerationError reports a prompt blocked by the moderation gate. No network
// request was made and the transcript was left untouched.
type ModerationError struct {
	Reason string
}

func (e *ModerationError) Error() string {
	return e.Reason
}

// genericStreamError is the user-facing text for any failure during request
// or stream consumption, deliberately distinct from the raw cause.
const genericStreamError = "Something went wrong while contacting Gemini."

// StreamFailure reports a failure during the request or the stream read loop.
// Its message is the generic user-facing error; the raw cause is available
// through Unwrap. Partial output already received was preserved in the
// transcript with a visible error suffix.
type StreamFailure struct {
	Err error
}

func (e *StreamFailure) Error() string {
	return genericStreamError
}

func (e *StreamFailure) Unwrap() error {
	return e.Err
}
