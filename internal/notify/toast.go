// Package notify carries user-visible transient notifications ("toasts")
// from the request layer to whatever surface displays them.
package notify

import (
	"context"
	"time"
)

// Toast is one transient notification.
type Toast struct {
	Title       string
	Description string
	Icon        string
	Color       string
	Timeout     time.Duration
}

// Notifier accepts toasts for display.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, t Toast)

// Notify calls f(ctx, t).
func (f NotifierFunc) Notify(ctx context.Context, t Toast) { f(ctx, t) }

// Nop discards every toast.
var Nop Notifier = NotifierFunc(func(context.Context, Toast) {})
