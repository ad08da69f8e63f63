package redis

import "strings"

const keyNamespace = "st"

// Key families. Every key the processes write lives under keyNamespace.
const (
	familyIdempotency = "idempotency"
	familyLock        = "lock"
	familyChannel     = "notice"
)

// IdempotencyKey is the replay-cache key for one request scope and client key.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(familyIdempotency, scope, id)
}

// LockKey names a sweep lease.
func (c *Client) LockKey(name string) string {
	return joinKey(familyLock, name)
}

// ChannelName namespaces a notice channel so several deployments can share a server.
func (c *Client) ChannelName(name string) string {
	return joinKey(familyChannel, name)
}

func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
