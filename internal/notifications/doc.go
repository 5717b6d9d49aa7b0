// Package notifications delivers run events to ntfy.
//
// The ntfy implementation posts plain-text messages with Title, Tags and
// Priority headers to the configured topic URL. Each event type can be muted
// in the [notifications] config section; without a topic a no-op service is
// returned, so callers never need to check whether notifications are enabled.
package notifications
