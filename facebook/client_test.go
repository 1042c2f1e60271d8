package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPagePosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page_1/posts", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "dummy_token", q.Get("access_token"))
		assert.Equal(t, "id,message,created_time,from,status_type,attachments", q.Get("fields"))
		assert.Equal(t, "50", q.Get("limit"))

		w.Write([]byte(`{
			"data": [
				{
					"id": "page_1_111",
					"message": "hello",
					"created_time": "2021-10-01T12:00:00+0000",
					"from": {"id": "page_1", "name": "Some Page"},
					"status_type": "added_photos",
					"attachments": {"data": [{"media": {"image": {"src": "https://cdn/img.jpg"}}}]}
				}
			]
		}`))
	}))
	defer srv.Close()

	client := NewCustomClient(srv.URL, "dummy_token", DefaultTimeout)
	posts, err := client.FetchPagePosts(context.Background(), "page_1")
	require.Nil(t, err)
	require.Len(t, posts, 1)

	assert.Equal(t, "page_1_111", posts[0].Id)
	assert.Equal(t, "added_photos", posts[0].StatusType)
	assert.Equal(t, "Some Page", posts[0].From.Name)
	require.Len(t, posts[0].Attachments.Data, 1)
	assert.Equal(t, "https://cdn/img.jpg", posts[0].Attachments.Data[0].Media.Image.Src)
}

func TestFetchPostComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page_1_111/comments", r.URL.Path)
		assert.Equal(t, "reverse_chronological", r.URL.Query().Get("order"))

		w.Write([]byte(`{
			"data": [
				{
					"id": "111_222",
					"from": {"id": "user_9", "name": "Some User"},
					"message": "nice post",
					"created_time": "2021-10-01T13:00:00+0000"
				},
				{
					"id": "111_221",
					"from": {"id": "user_8", "name": "Other User"},
					"message": "first",
					"created_time": "2021-10-01T12:30:00+0000"
				}
			]
		}`))
	}))
	defer srv.Close()

	client := NewCustomClient(srv.URL, "dummy_token", DefaultTimeout)
	comments, err := client.FetchPostComments(context.Background(), "page_1_111")
	require.Nil(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "111_222", comments[0].Id)
	assert.Equal(t, "user_8", comments[1].From.Id)
}

func TestGraphErrorInsideOkBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with a top-level error object, which Graph does for expired
		// tokens among other things.
		w.Write([]byte(`{"error": {"message": "Error validating access token", "type": "OAuthException", "code": 190}}`))
	}))
	defer srv.Close()

	client := NewCustomClient(srv.URL, "expired_token", DefaultTimeout)
	_, err := client.FetchPagePosts(context.Background(), "page_1")
	require.NotNil(t, err)

	graphErr, ok := err.(*GraphError)
	require.True(t, ok)
	assert.Equal(t, 190, graphErr.Code)
	assert.Equal(t, "OAuthException", graphErr.Type)
}

func TestNonOkStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewCustomClient(srv.URL, "dummy_token", time.Second)
	_, err := client.FetchPagePosts(context.Background(), "page_1")
	assert.NotNil(t, err)
}

func TestEmptyDataYieldsEmptySlice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	client := NewCustomClient(srv.URL, "dummy_token", DefaultTimeout)
	posts, err := client.FetchPagePosts(context.Background(), "page_1")
	require.Nil(t, err)
	assert.Empty(t, posts)
}
