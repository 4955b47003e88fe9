package redis

import "fmt"

const (
	// KeyPrefixSession is the prefix for browser session keys
	KeyPrefixSession = "marktrabit:session:"
	// KeyPrefixFlow is the prefix for pending sign-in flow keys
	KeyPrefixFlow = "marktrabit:flow:"
	// KeyPrefixView is the prefix for dashboard view state keys
	KeyPrefixView = "marktrabit:view:"
	// KeyPrefixEvents is the prefix for per-session pub/sub channels
	KeyPrefixEvents = "marktrabit:events:"
)

// SessionKey returns the Redis key for a browser session
func SessionKey(sid string) string {
	return KeyPrefixSession + sid
}

// FlowKey returns the Redis key for a sign-in flow
func FlowKey(flowID string) string {
	return KeyPrefixFlow + flowID
}

// ViewKey returns the Redis key for a view state
func ViewKey(sid string) string {
	return KeyPrefixView + sid
}

// EventsChannel returns the pub/sub channel for a browser session
func EventsChannel(sid string) string {
	return KeyPrefixEvents + sid
}

// ExtractSessionID extracts the sid from a session key
func ExtractSessionID(key string) (string, error) {
	if len(key) <= len(KeyPrefixSession) || key[:len(KeyPrefixSession)] != KeyPrefixSession {
		return "", fmt.Errorf("invalid session key: %s", key)
	}
	return key[len(KeyPrefixSession):], nil
}
