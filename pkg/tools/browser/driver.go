package browser

import "context"

// Note is the approved content handed to the platform.
type Note struct {
	Title string
	Body  string
	Media []string
}

// Driver abstracts the actual browser so the tool's ordering logic can be
// tested without launching Chromium.
type Driver interface {
	// Open launches the browser and prepares a page on the platform.
	Open(ctx context.Context) error

	// RestoreSession tries to authenticate from a saved session and reports
	// whether the platform accepted it.
	RestoreSession(ctx context.Context) (bool, error)

	// AwaitLogin parks on the login page until the user completes login by
	// hand, then persists the session. It returns an error if the wait
	// expires first.
	AwaitLogin(ctx context.Context) error

	// Publish fills and submits the note on the creator page.
	Publish(ctx context.Context, note Note) error

	// ConfirmPublished scans the page for evidence the note went live. The
	// boolean is the verdict; the string carries whatever detail was found.
	ConfirmPublished(ctx context.Context) (bool, string, error)

	// Close tears down the browser. Safe to call in any state.
	Close(ctx context.Context) error
}
