package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"sociallink/internal/models"
	"sociallink/internal/service"
	"sociallink/internal/storage"
	"sociallink/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostStoresImagesInOrder(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	postID := env.createPost(t, token, "sunset", 3)

	resp, body := env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sunset", body["description"])
	images := body["images"].([]any)
	require.Len(t, images, 3)
	for _, img := range images {
		key := img.(string)
		assert.True(t, strings.HasPrefix(key, storage.PrefixPosts), key)
		assert.True(t, env.store.Has(key), key)
	}
	assert.Equal(t, float64(0), body["likes_count"])
	assert.Equal(t, float64(0), body["comments_count"])
}

func TestCreatePostRequiresDescriptionAndImage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	req := multipartRequest(t, http.MethodPost, "/api/posts", map[string]string{"description": "no images"})
	resp, body := env.do(t, req, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["status"])

	req = multipartRequest(t, http.MethodPost, "/api/posts", nil,
		formFile{field: "images", name: "a.png", data: testutil.TinyPNG(t, 4, 4)})
	resp, _ = env.do(t, req, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.store.Keys(storage.PrefixPosts))
}

func TestCreatePostRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "alice")

	req := multipartRequest(t, http.MethodPost, "/api/posts", map[string]string{"description": "text"},
		formFile{field: "images", name: "notes.txt", data: []byte("plain text, not an image")})
	resp, body := env.do(t, req, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid image type", body["message"])
	assert.Empty(t, env.store.Keys(storage.PrefixPosts))
}

func TestUpdatePostOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.register(t, "owner")
	_, otherToken := env.register(t, "other")
	postID := env.createPost(t, ownerToken, "mine", 1)

	for _, path := range []string{fmt.Sprintf("/api/posts/%d", postID), "/api/posts/9999"} {
		resp, body := env.doJSON(t, http.MethodPut, path, otherToken, map[string]string{"description": "hijack"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		assert.Equal(t, "Post not found or unauthorized", body["message"])
		assert.Equal(t, models.CodeForbidden, body["code"])
	}

	resp, body := env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Post not found or unauthorized", body["message"])
}

func TestUpdatePostReplacesImages(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "owner")
	postID := env.createPost(t, token, "before", 2)
	before := env.store.Keys(storage.PrefixPosts)
	require.Len(t, before, 2)

	req := multipartRequest(t, http.MethodPut, fmt.Sprintf("/api/posts/%d", postID), map[string]string{"description": "after"},
		formFile{field: "images", name: "new.png", data: testutil.TinyPNG(t, 6, 6)})
	resp, body := env.do(t, req, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, service.MsgPostUpdated, body["message"])

	post := body["post"].(map[string]any)
	assert.Equal(t, "after", post["description"])
	images := post["images"].([]any)
	require.Len(t, images, 1)

	after := env.store.Keys(storage.PrefixPosts)
	assert.Equal(t, []string{images[0].(string)}, after)
	for _, k := range before {
		assert.False(t, env.store.Has(k))
	}
}

func TestUpdatePostDescriptionOnlyKeepsImages(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "owner")
	postID := env.createPost(t, token, "before", 1)
	keys := env.store.Keys(storage.PrefixPosts)

	resp, body := env.doJSON(t, http.MethodPut, fmt.Sprintf("/api/posts/%d", postID), token, map[string]string{"description": "edited"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	post := body["post"].(map[string]any)
	assert.Equal(t, "edited", post["description"])
	assert.Equal(t, keys, env.store.Keys(storage.PrefixPosts))
}

func TestDeletePostRemovesImages(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "owner")
	postID := env.createPost(t, token, "bye", 2)

	resp, body := env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, service.MsgPostDeleted, body["message"])
	assert.Empty(t, env.store.Keys(storage.PrefixPosts))

	resp, body = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Post not found", body["message"])
}

func TestFeedNewestFirstWithViewerLike(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.register(t, "alice")
	_, bobToken := env.register(t, "bob")
	first := env.createPost(t, aliceToken, "first", 1)
	second := env.createPost(t, bobToken, "second", 1)

	resp, _ := env.doJSON(t, http.MethodPost, "/api/likes/toggle", bobToken, map[string]uint{"user_post_id": first})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status, feed := env.getList(t, "/api/posts", bobToken)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, feed, 2)
	assert.Equal(t, float64(second), feed[0]["id"])
	assert.Equal(t, float64(first), feed[1]["id"])
	assert.Equal(t, true, feed[1]["liked"])
	assert.Equal(t, float64(1), feed[1]["likes_count"])

	_, anon := env.getList(t, "/api/posts?limit=1", "")
	require.Len(t, anon, 1)
	assert.Equal(t, false, anon[0]["liked"])

	_, mine := env.getList(t, fmt.Sprintf("/api/users/%d/posts", alice.ID), "")
	require.Len(t, mine, 1)
	assert.Equal(t, float64(first), mine[0]["id"])
}

func TestGetPostInvalidID(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.doJSON(t, http.MethodGet, "/api/posts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid ID", body["message"])
}
