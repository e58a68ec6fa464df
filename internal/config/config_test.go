package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Port)
	assert.Equal(t, "memory", cfg.JobStore)
	assert.Equal(t, "local", cfg.DispatchMode)
	assert.Equal(t, "ollama", cfg.AIProvider)
	assert.Equal(t, "generated", cfg.ArtifactDir)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Duration(0), cfg.JobTimeout)
	assert.Equal(t, 20, cfg.ThreadWindow)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cobalt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\nchain_backend: evm\nquest_address: \"0x00000000000000000000000000000000000000bb\"\n"), 0o600))

	t.Setenv("PORT", "5000")
	t.Setenv("TAVERN_ADDRESS", "0x00000000000000000000000000000000000000aa")
	t.Setenv("JOB_TIMEOUT", "2m")
	t.Setenv("TAVERN_ABI_PATH", "abi/Tavern.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "evm", cfg.ChainBackend)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", cfg.TavernAddress)
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", cfg.QuestAddress)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
	assert.Equal(t, "abi/Tavern.json", cfg.TavernABIPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateReportsEverything(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.AIProvider = "openrouter"
	cfg.ArtifactBackend = "pinata"
	cfg.ChainBackend = "evm"
	cfg.TavernAddress = "tavern"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"OPENROUTER_API_KEY", "GOOGLE_API_KEY", "PINATA_JWT",
		"ETHEREUM_RPC_URL", "PRIVATE_KEY", "QUEST_ADDRESS", "TAVERN_ADDRESS is not a hex address",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateChoices(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.GoogleAPIKey = "key"
	require.NoError(t, cfg.Validate())

	cfg.JobStore = "postgres"
	cfg.DispatchMode = "queue"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `job_store must be one of memory|sql, got "postgres"`)
	assert.Contains(t, err.Error(), "dispatch_mode=queue needs job_store=sql")
	assert.Contains(t, err.Error(), "dispatch_mode=queue needs chain_backend=evm")
}

func TestValidateQueueWithSharedBackends(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.GoogleAPIKey = "key"
	cfg.DispatchMode = "queue"
	cfg.JobStore = "sql"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch_mode=queue needs chain_backend=evm")

	cfg.ChainBackend = "evm"
	cfg.EthereumRPCURL = "http://127.0.0.1:8545"
	cfg.PrivateKey = "deadbeef"
	cfg.TavernAddress = "0x00000000000000000000000000000000000000aa"
	cfg.QuestAddress = "0x00000000000000000000000000000000000000bb"
	assert.NoError(t, cfg.Validate())
}
