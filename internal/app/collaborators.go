package app

import "context"

// Confirmer asks the user a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

var (
	// Confirmed answers yes to every prompt.
	Confirmed Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })
	// Declined answers no to every prompt.
	Declined Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
)

// Notifier shows a message to the user.
type Notifier interface {
	Notify(ctx context.Context, title, text string)
}
