package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseArgsOverrides(t *testing.T) {
	cfg, err := ParseArgs([]string{"--proc", "4", "--dag-freq", "512", "--pview"})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Proc)
	assert.Equal(t, 512, cfg.DagFreq)
	assert.True(t, cfg.PView)
	assert.Equal(t, DefaultConfig().SharingFreq, cfg.SharingFreq)
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	_, err := ParseArgs([]string{"--not-a-flag"})
	assert.Error(t, err)
}

func TestInvariantErrorWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := &InvariantError{Kind: InvariantCounterUnderflow, Cause: cause}
	assert.ErrorIs(t, err, cause)

	ie, ok := AsInvariantError(err)
	require.True(t, ok)
	assert.Equal(t, InvariantCounterUnderflow, ie.Kind)
}
