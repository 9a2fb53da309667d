package platform

import (
	"fmt"
	"strings"
)

// NotificationName is a named event kind an observer can report.
type NotificationName string

// Notifications the narrator subscribes to.
const (
	SelectedTextChanged     NotificationName = "AXSelectedTextChanged"
	FocusedUIElementChanged NotificationName = "AXFocusedUIElementChanged"
	FocusedWindowChanged    NotificationName = "AXFocusedWindowChanged"
	ValueChanged            NotificationName = "AXValueChanged"
	WindowCreated           NotificationName = "AXWindowCreated"
	UIElementDestroyed      NotificationName = "AXUIElementDestroyed"
	TitleChanged            NotificationName = "AXTitleChanged"
)

var notificationAliases = map[string]NotificationName{
	"selected-text-changed":   SelectedTextChanged,
	"focused-element-changed": FocusedUIElementChanged,
	"focused-window-changed":  FocusedWindowChanged,
	"value-changed":           ValueChanged,
	"window-created":          WindowCreated,
	"element-destroyed":       UIElementDestroyed,
	"title-changed":           TitleChanged,
}

// ParseNotification converts a script or flag value to a NotificationName.
// It accepts both the AX name and a kebab-case alias.
func ParseNotification(s string) (NotificationName, error) {
	s = strings.TrimSpace(s)
	if n, ok := notificationAliases[strings.ToLower(s)]; ok {
		return n, nil
	}
	for _, n := range notificationAliases {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown notification: %q", s)
}

// Info is the weakly typed payload attached to a notification. Values are
// element handles, ranges, numbers, booleans or strings.
type Info map[string]any

// Notification is a single delivery from a native observer.
type Notification struct {
	Name NotificationName
	// Element is the element the notification is about.
	Element Element
	// Info is nil when the producer sent no payload.
	Info Info
}

// Callback receives native notifications.
type Callback func(Notification)
