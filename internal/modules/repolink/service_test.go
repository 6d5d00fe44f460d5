package repolink

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkContentShortFile(t *testing.T) {
	got := chunkContent("package main\n\nfunc main() {}\n")
	require.Len(t, got, 1)
	assert.Equal(t, "package main\n\nfunc main() {}", got[0])
}

func TestChunkContentBreaksOnLines(t *testing.T) {
	line := strings.Repeat("x", 100) + "\n"
	content := strings.Repeat(line, 40) // ~4000 chars

	chunks := chunkContent(content)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), chunkTarget+101, "chunks stay near the target size")
		for _, l := range strings.Split(chunk, "\n") {
			assert.Len(t, l, 100)
		}
	}
	assert.Equal(t, strings.TrimSpace(content), strings.TrimSpace(strings.Join(chunks, "\n")))
}

func TestChunkContentEmpty(t *testing.T) {
	assert.Nil(t, chunkContent("   \n  "))
}

func TestIngestiblePath(t *testing.T) {
	assert.True(t, ingestiblePath("README.md"))
	assert.True(t, ingestiblePath("cmd/server/main.go"))
	assert.True(t, ingestiblePath("config.YAML"))
	assert.False(t, ingestiblePath("assets/logo.png"))
	assert.False(t, ingestiblePath(".github/workflows/ci.yml"))
	assert.False(t, ingestiblePath("model/weights.bin"))
}
