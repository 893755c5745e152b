// Package actions wraps the OS-facing side effects commands can trigger.
// Every method is best-effort: a missing desktop helper degrades to a log
// line rather than an error where a fallback exists.
package actions

// Actions is the execution collaborator used by the command executor.
type Actions interface {
	ShowMessage(title, body string) (string, error)
	PlayChime(repeat int) (string, error)
	LockScreen() (string, error)
}

// New returns the implementation for the current platform.
func New() Actions { return platformActions{} }
