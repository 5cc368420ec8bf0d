package ports

// Frontend is a long-running surface that accepts scan requests
type Frontend interface {
	// Name identifies the frontend in logs
	Name() string

	// Start begins serving in the background and returns once listening has been set up
	Start() error

	// Stop shuts the frontend down
	Stop() error
}
