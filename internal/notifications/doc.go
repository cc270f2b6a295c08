// Package notifications pushes pipeline outcomes to ntfy.
//
// Callers publish an Event with a small Payload map; the ntfy service turns
// it into a title, message, tags and priority. When no topic is configured,
// or an event's category is switched off, NewService returns a notifier that
// silently drops events.
package notifications
