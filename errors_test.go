package ginsync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", ErrResolve)
	perr := &PipelineError{Source: "ecephys", State: StateResolving, Err: cause}

	t.Run("names the source and state", func(t *testing.T) {
		assert.Equal(t, "source ecephys: resolving: revision resolution failed: connection refused", perr.Error())
	})

	t.Run("preserves the error chain", func(t *testing.T) {
		assert.ErrorIs(t, perr, ErrResolve)

		var target *PipelineError
		wrapped := fmt.Errorf("sync: %w", perr)
		require.ErrorAs(t, wrapped, &target)
		assert.Equal(t, "ecephys", target.Source)
		assert.Equal(t, StateResolving, target.State)
	})

	t.Run("unwraps to the cause", func(t *testing.T) {
		assert.Equal(t, cause, errors.Unwrap(perr))
	})
}
