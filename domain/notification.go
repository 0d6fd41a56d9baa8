package domain

// Notification is the transient payload carried by a push event. It is never
// persisted; it is consumed by rendering an alert and by the subsequent
// interaction handler, which reads the target URL once and discards it.
type Notification struct {
	Title string `json:"title"` // Alert title, defaulted when absent
	Body  string `json:"body"`  // Alert body text, defaulted when absent
	URL   string `json:"url"`   // Target URL for the "open" action, defaults to "/"
}

// AlertAction is one of the actions attached to a rendered alert.
type AlertAction struct {
	Action string // Action identifier ("open", "dismiss")
	Title  string // Human-readable label
}
