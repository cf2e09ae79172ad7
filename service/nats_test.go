package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitResolveSubject(t *testing.T) {
	tests := []struct {
		subject      string
		wantCategory string
		wantName     string
		wantOK       bool
	}{
		{"body.resolve.perms.basic", "perms", "basic", true},
		{"body.resolve.service_method.running", "service_method", "running", true},
		{"body.resolve.perms", "", "", false},
		{"body.resolve.perms.basic.extra", "", "", false},
		{"body.resolve..basic", "", "", false},
		{"body.resolve.perms.", "", "", false},
		{"other.subject", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			category, name, ok := splitResolveSubject(tt.subject)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCategory, category)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("perms", "basic", "1.0.0", map[string]string{"mode": "0755", "owner": "root"})
	b := cacheKey("perms", "basic", "1.0.0", map[string]string{"owner": "root", "mode": "0755"})
	assert.Equal(t, a, b, "key must not depend on map iteration order")

	c := cacheKey("perms", "basic", "1.0.0", map[string]string{"mode": "0644"})
	assert.NotEqual(t, a, c, "different bindings must produce different keys")

	d := cacheKey("perms", "basic", "", nil)
	assert.Contains(t, d, ".latest.")
}

func TestCacheKeySanitizesTokens(t *testing.T) {
	key := cacheKey("perms", "basic", "1.0.0", nil)
	// Dots in the version would collide with KV key separators.
	assert.Contains(t, key, "1_0_0")
	assert.NotContains(t, key, "1.0.0")
}
