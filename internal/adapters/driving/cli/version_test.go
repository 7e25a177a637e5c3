package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	old := version
	SetVersion("1.2.3")
	defer SetVersion(old)

	out, err := executeCommand("version")

	require.NoError(t, err)
	assert.Contains(t, out, "casesync version 1.2.3")
}
