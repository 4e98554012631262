package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/config"
)

func TestOpenIndex_MissingIndexIsNotCreated(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"

	_, err := OpenIndex(context.Background(), cfg, root)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(root, ".paperchat", "index.db"))
	assert.True(t, os.IsNotExist(statErr), "opening a missing index must not create one")
}

func TestOpenIndex_ExistingIndex(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"

	a, err := openApp(context.Background(), cfg, root)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = OpenIndex(context.Background(), cfg, root)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "mock", a.Embedder().ModelName())
	n, err := a.Vectors().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNewLLM_OllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.DefaultConfig()
	cfg.Chat.Provider = "ollama"

	_, err := newLLM(cfg)
	assert.NoError(t, err)

	cfg.Chat.Provider = "openai"
	_, err = newLLM(cfg)
	assert.Error(t, err)
}
