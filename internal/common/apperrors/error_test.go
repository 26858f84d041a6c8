package apperrors

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("derived kinds", func(t *testing.T) {
		ErrBase := New("base error")
		assert.Equal(t, "base error", ErrBase.Error())
		assert.ErrorIs(t, ErrBase, ErrBase)

		ErrFirstLevel := ErrBase.New("first level")
		assert.Equal(t, "first level", ErrFirstLevel.Error())
		assert.ErrorIs(t, ErrFirstLevel, ErrBase)

		ErrSibling := ErrBase.New("sibling")
		assert.NotErrorIs(t, ErrFirstLevel, ErrSibling)
	})

	t.Run("attached causes", func(t *testing.T) {
		ErrBase := New("base error")
		ErrFirstLevel := ErrBase.New("first level")

		cause := errors.New("disk full")
		wrapped := ErrFirstLevel.Err(cause)
		assert.Equal(t, "first level", wrapped.Error())
		assert.Equal(t, "first level: disk full", wrapped.ErrorAll())
		assert.ErrorIs(t, wrapped, ErrBase)
		assert.ErrorIs(t, wrapped, ErrFirstLevel)
		assert.ErrorIs(t, wrapped, cause)

		withMsg := ErrFirstLevel.MsgErr("writing config", cause)
		assert.Equal(t, "writing config", withMsg.Error())
		assert.ErrorIs(t, withMsg, ErrFirstLevel)
		assert.ErrorIs(t, withMsg, cause)

		goErr := fmt.Errorf("another error")
		multi := ErrFirstLevel.Err(cause, goErr)
		assert.ErrorIs(t, multi, goErr)
		assert.Len(t, multi.UnwrapAll(), 2)

		quiet := ErrFirstLevel.SetExpandError(false).Err(cause)
		assert.Equal(t, "first level", quiet.ErrorAll())
	})

	t.Run("exit codes", func(t *testing.T) {
		ErrBase := New("base error").SetExitCode(3)
		ErrChild := ErrBase.New("child")
		assert.Equal(t, 3, ErrChild.ExitCode())
		assert.Equal(t, 4, ErrChild.SetExitCode(4).ExitCode())
		assert.Equal(t, 1, New("plain").ExitCode())

		assert.Equal(t, 0, ExitCode(nil))
		assert.Equal(t, 1, ExitCode(errors.New("not an app error")))
		assert.Equal(t, 3, ExitCode(fmt.Errorf("starting: %w", ErrChild)))
		assert.Equal(t, 3, ExitCode(errors.Wrap(ErrChild, "starting")))
	})

	t.Run("describe", func(t *testing.T) {
		ErrBase := New("base error")
		assert.Equal(t, "", Describe(nil))
		assert.Equal(t, "base error: boom", Describe(ErrBase.Err(errors.New("boom"))))
		assert.Equal(t, "plain", Describe(errors.New("plain")))
	})
}
