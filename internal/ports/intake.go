package ports

// MailIntake defines the lifecycle of a long-running mail ingestion
// surface, such as the SMTP intake server.
type MailIntake interface {
	// Start starts the intake; it must not block.
	Start() error

	// Stop shuts the intake down.
	Stop() error
}
