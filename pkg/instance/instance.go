package instance

import "os"

// GetID identifies this process in logs: SHELFTRACK_INSTANCE_ID, then the
// hostname, then "local".
func GetID() string {
	if id := os.Getenv("SHELFTRACK_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
