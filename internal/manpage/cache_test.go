package manpage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcard/caro/internal/platform"
)

func TestBuildPopulatesToolsForEachName(t *testing.T) {
	c := New(platform.Current())
	c.Build(context.Background(), []string{"ls", "echo"})

	_, hasLs := c.Lookup("ls")
	_, hasEcho := c.Lookup("echo")
	assert.True(t, hasLs)
	assert.True(t, hasEcho)
}

func TestStaleBeforeFirstBuild(t *testing.T) {
	c := New(platform.Current())
	assert.True(t, c.Stale(platform.Current()))
}

func TestStaleOnFingerprintChange(t *testing.T) {
	c := New(platform.Current())
	c.Build(context.Background(), []string{"ls"})
	assert.False(t, c.Stale(c.fingerprint))

	other := c.fingerprint
	other.OS = other.OS + "-other"
	assert.True(t, c.Stale(other))
}

func TestStaleAfterTTLElapsed(t *testing.T) {
	c := New(platform.Current())
	c.ttl = 1 * time.Millisecond
	c.Build(context.Background(), []string{"ls"})
	time.Sleep(5 * time.Millisecond)
	assert.True(t, c.Stale(c.fingerprint))
}

func TestEnsureToolLazilyInsertsUnknownTool(t *testing.T) {
	c := New(platform.Current())
	_, ok := c.Lookup("grep")
	require.False(t, ok)

	info := c.EnsureTool(context.Background(), "grep")
	assert.Equal(t, "grep", info.Name)

	_, ok = c.Lookup("grep")
	assert.True(t, ok)
}

func TestRefreshIfStaleRebuildsOnlyWhenNeeded(t *testing.T) {
	c := New(platform.Current())
	refreshed := c.RefreshIfStale(context.Background(), platform.Current())
	assert.True(t, refreshed, "first call should always rebuild")

	refreshedAgain := c.RefreshIfStale(context.Background(), platform.Current())
	assert.False(t, refreshedAgain, "second call should be a no-op while fresh")
}
