package ports

import "context"

// IdentityAPI is the backend credential exchange consumed by the session core.
//
// Errors wrap domain.ErrNetworkUnreachable when the backend could not be
// reached, or are a *domain.APIError for non-2xx answers.
type IdentityAPI interface {
	Login(ctx context.Context, email, password string) (token string, err error)
	Register(ctx context.Context, companyName, email, password string) error
}

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(path string)
}

// NotificationLevel classifies a transient notification.
type NotificationLevel string

const (
	NotifyInfo  NotificationLevel = "info"
	NotifyError NotificationLevel = "error"
)

// Notification is a non-blocking message shown to the user.
type Notification struct {
	Level   NotificationLevel
	Message string
}

// Notifier delivers transient notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}
