package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshiraki/trainlog/internal/core/domain"
)

func TestNewUser(t *testing.T) {
	t.Run("Success: normalizes the email", func(t *testing.T) {
		user, err := domain.NewUser("user-1", "  Taro.Yamada@Example.COM  ", "Taro")
		require.NoError(t, err)

		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "taro.yamada@example.com", user.Email)
		assert.Equal(t, "Taro", user.DisplayName)
		assert.False(t, user.CreatedAt.IsZero())
		assert.Nil(t, user.DeletedAt)
	})

	t.Run("Success: blank display name falls back to the email local part", func(t *testing.T) {
		user, err := domain.NewUser("user-1", "taro@example.com", "   ")
		require.NoError(t, err)

		assert.Equal(t, "taro", user.DisplayName)
	})

	t.Run("Fail: malformed email", func(t *testing.T) {
		_, err := domain.NewUser("user-1", "not-an-address", "Taro")
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})
}

func TestUser_Password(t *testing.T) {
	t.Run("Success: hashes the password and bumps UpdatedAt", func(t *testing.T) {
		user, err := domain.NewUser("user-1", "taro@example.com", "")
		require.NoError(t, err)

		before := user.UpdatedAt
		time.Sleep(1 * time.Millisecond)

		require.NoError(t, user.SetPassword("correct horse battery"))
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "correct horse battery", user.PasswordHash)
		assert.True(t, user.UpdatedAt.After(before))
	})

	t.Run("Fail: password under eight characters", func(t *testing.T) {
		user, err := domain.NewUser("user-1", "taro@example.com", "")
		require.NoError(t, err)

		assert.ErrorIs(t, user.SetPassword("seven77"), domain.ErrPasswordTooShort)
	})

	t.Run("CheckPassword accepts the original and rejects anything else", func(t *testing.T) {
		user, err := domain.NewUser("user-1", "taro@example.com", "")
		require.NoError(t, err)
		require.NoError(t, user.SetPassword("correct horse battery"))

		assert.NoError(t, user.CheckPassword("correct horse battery"))
		assert.Error(t, user.CheckPassword("wrong horse battery"))
	})
}
