package server

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"pollhub/internal/models"
	"pollhub/internal/session"
	"pollhub/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_ShowAndEdit(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser()
	_ = b.register("alice").Body.Close()
	_ = env.browser().register("bob").Body.Close()

	body := readBody(t, b.get("/accounts/profile"))
	assert.Contains(t, body, "alice@example.com")

	resp := b.get("/accounts/profile/edit")
	body = readBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="alice"`)

	t.Run("taken email", func(t *testing.T) {
		resp := b.postMultipart("/accounts/profile/edit", map[string]string{
			"username": "alice", "email": "bob@example.com",
		})
		body := readBody(t, resp)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Пользователь с таким адресом электронной почты уже существует")
	})

	t.Run("keeping own values is allowed", func(t *testing.T) {
		resp := b.postMultipart("/accounts/profile/edit", map[string]string{
			"username": "alice", "email": "alice@example.com",
		})
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	})

	t.Run("rename and new avatar", func(t *testing.T) {
		var before models.User
		require.NoError(t, env.db.Where("username = ?", "alice").First(&before).Error)

		resp := b.postMultipart("/accounts/profile/edit", map[string]string{
			"username": "alicia", "email": "alicia@example.com",
		}, testutil.Upload{Field: "avatar", Filename: "new.bmp", Content: testutil.TinyBMP(t, 8, 8)})
		_ = resp.Body.Close()
		require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/accounts/profile", resp.Header.Get(fiber.HeaderLocation))

		var after models.User
		require.NoError(t, env.db.First(&after, before.ID).Error)
		assert.Equal(t, "alicia", after.Username)
		assert.Equal(t, ".bmp", filepath.Ext(after.Avatar))

		_, err := os.Stat(filepath.Join(env.cfg.MediaDir, filepath.FromSlash(before.Avatar)))
		assert.True(t, os.IsNotExist(err), "previous avatar removed")

		body := readBody(t, b.get("/"))
		assert.Contains(t, body, "alicia", "session follows the new username")
	})
}

func TestProfile_Delete(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser()
	_ = b.register("alice").Body.Close()
	q := createPoll(t, env, b, "Keep counters?", "Yes", "No")
	_ = b.postForm(fmt.Sprintf("/polls/%d/vote", q.ID), choiceValue(q.Choices[0].ID)).Body.Close()

	resp := b.get("/accounts/profile/delete")
	body := readBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Вы уверены")

	resp = b.postForm("/accounts/profile/delete", nil)
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
	assert.Empty(t, b.cookies[session.CookieName])

	var users int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)

	var voters int64
	require.NoError(t, env.db.Model(&models.QuestionVoter{}).Count(&voters).Error)
	assert.Zero(t, voters)

	got := loadQuestion(t, env, q.ID)
	assert.Equal(t, 1, got.TotalVotes, "counters survive account deletion")
}

func TestProfile_DeleteEndsOtherSessions(t *testing.T) {
	env := newTestEnv(t)
	first := env.browser()
	_ = first.register("alice").Body.Close()
	q := createPoll(t, env, first, "Still counted?", "Yes", "No")

	second := env.browser()
	resp := second.postForm("/accounts/login", url.Values{"username": {"alice"}, "password": {testPassword}})
	_ = resp.Body.Close()
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	require.NotEmpty(t, second.cookies[session.CookieName])

	resp = first.postForm("/accounts/profile/delete", nil)
	_ = resp.Body.Close()
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

	resp = second.postForm(fmt.Sprintf("/polls/%d/vote", q.ID), choiceValue(q.Choices[0].ID))
	_ = resp.Body.Close()
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/accounts/login", resp.Header.Get(fiber.HeaderLocation))
	assert.Empty(t, second.cookies[session.CookieName], "stale session cookie is cleared")

	resp = second.postForm("/polls/new", url.Values{"question_text": {"Orphan poll"}, "form-0-choice_text": {"a"}})
	_ = resp.Body.Close()
	assert.Equal(t, "/accounts/login", resp.Header.Get(fiber.HeaderLocation))

	got := loadQuestion(t, env, q.ID)
	assert.Zero(t, got.TotalVotes)
	assert.Zero(t, got.Choices[0].Votes)

	var voters, questions int64
	require.NoError(t, env.db.Model(&models.QuestionVoter{}).Count(&voters).Error)
	require.NoError(t, env.db.Model(&models.Question{}).Count(&questions).Error)
	assert.Zero(t, voters)
	assert.EqualValues(t, 1, questions)
}
