package dashboard

// Config holds the HTTP server's own knobs, carved out of the top-level
// config.Config so the dashboard package doesn't import the rest of the
// bot's configuration surface.
type Config struct {
	Port int
	Host string
	// JournalPath, if set, backs /api/recent with a tail of the audit
	// journal so a freshly connected client sees activity predating its
	// connection. When empty, /api/recent answers with an empty list.
	JournalPath string
}
