package tokenstore

import "sync"

// in-memory jti revocation store; logout flips a token here and the auth
// middleware rejects it afterwards. Single-process only.
var (
	mu            sync.RWMutex
	revokedTokens = map[string]struct{}{}
)

func RevokeToken(jti string) {
	if jti == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	revokedTokens[jti] = struct{}{}
}

func IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	_, ok := revokedTokens[jti]
	return ok
}
