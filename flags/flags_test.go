package flags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlags asserts that no flag name or env var is registered twice.
func TestUniqueFlags(t *testing.T) {
	seenNames := make(map[string]struct{})
	seenEnvVars := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		_, ok := seenNames[name]
		assert.False(t, ok, "duplicate flag name %s", name)
		seenNames[name] = struct{}{}

		envFlag, ok := flag.(interface{ GetEnvVars() []string })
		require.True(t, ok, "flag %s does not expose env vars", name)
		for _, envVar := range envFlag.GetEnvVars() {
			_, ok := seenEnvVars[envVar]
			assert.False(t, ok, "duplicate env var %s", envVar)
			seenEnvVars[envVar] = struct{}{}
		}
	}
}

// TestEnvVarFormat asserts that every env var carries the expected prefix.
func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		envFlag, ok := flag.(interface{ GetEnvVars() []string })
		require.True(t, ok)
		for _, envVar := range envFlag.GetEnvVars() {
			assert.True(t, strings.HasPrefix(envVar, EnvVarPrefix+"_"),
				"env var %s does not start with %s_", envVar, EnvVarPrefix)
			assert.Equal(t, strings.ToUpper(envVar), envVar, "env var %s is not upper case", envVar)
		}
	}
}

func TestCheckRequired(t *testing.T) {
	app := cli.NewApp()
	app.Flags = Flags
	app.Action = func(ctx *cli.Context) error {
		return CheckRequired(ctx)
	}

	err := app.Run([]string{"rankrunner"})
	assert.Error(t, err, "manifest flag is required")

	err = app.Run([]string{"rankrunner", "--manifest", "suites.yaml"})
	assert.NoError(t, err)
}
