// Package facebook is a minimal Graph API client for the two reads the
// ingestor performs: page posts and post comments. It only models the fields
// the pipeline consumes.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"

	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

const (
	postsFields    = "id,message,created_time,from,status_type,attachments"
	commentsFields = "id,from,message,created_time"
	fetchLimit     = "50"

	DefaultTimeout = 30 * time.Second
)

type Client struct {
	baseURL     string
	accessToken string

	client *http.Client
}

// NewClient builds a Graph client from FACEBOOK_BASE_URL and
// FACEBOOK_ACCESS_TOKEN. The timeout bounds every request issued through
// this client.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		baseURL:     os.Getenv("FACEBOOK_BASE_URL"),
		accessToken: os.Getenv("FACEBOOK_ACCESS_TOKEN"),
		client:      &http.Client{Timeout: timeout},
	}
}

// NewCustomClient is used in tests to point the client at a stub server.
func NewCustomClient(baseURL string, accessToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

// Actor is the "from" object attached to posts and comments.
type Actor struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type AttachmentMedia struct {
	Image struct {
		Src string `json:"src"`
	} `json:"image"`
	Source string `json:"source"`
}

type Attachment struct {
	Media AttachmentMedia `json:"media"`
}

// GraphPost is one element of a page's /posts edge.
type GraphPost struct {
	Id          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	From        Actor  `json:"from"`
	StatusType  string `json:"status_type"`
	Attachments struct {
		Data []Attachment `json:"data"`
	} `json:"attachments"`
}

// GraphComment is one element of a post's /comments edge.
type GraphComment struct {
	Id          string `json:"id"`
	From        Actor  `json:"from"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
}

// GraphError is the top-level error object Graph returns inside a 2xx body.
type GraphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api error (code %d, type %s): %s", e.Code, e.Type, e.Message)
}

type graphEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *GraphError     `json:"error"`
}

// FetchPagePosts returns a bounded window of the page's most recent posts.
func (c *Client) FetchPagePosts(ctx context.Context, pageId string) ([]GraphPost, error) {
	params := url.Values{}
	params.Set("fields", postsFields)
	params.Set("limit", fetchLimit)

	raw, err := c.get(ctx, fmt.Sprintf("%s/%s/posts", c.baseURL, pageId), params)
	if err != nil {
		return nil, err
	}

	posts := []GraphPost{}
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, errors.Wrap(err, "fail to decode posts response")
	}
	return posts, nil
}

// FetchPostComments returns a bounded window of the post's comments, newest
// first.
func (c *Client) FetchPostComments(ctx context.Context, postId string) ([]GraphComment, error) {
	params := url.Values{}
	params.Set("fields", commentsFields)
	params.Set("order", "reverse_chronological")
	params.Set("limit", fetchLimit)

	raw, err := c.get(ctx, fmt.Sprintf("%s/%s/comments", c.baseURL, postId), params)
	if err != nil {
		return nil, err
	}

	comments := []GraphComment{}
	if err := json.Unmarshal(raw, &comments); err != nil {
		return nil, errors.Wrap(err, "fail to decode comments response")
	}
	return comments, nil
}

func (c *Client) get(ctx context.Context, uri string, params url.Values) (json.RawMessage, error) {
	params.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, "GET", uri+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "graph api request failed")
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "fail to read graph api response")
	}

	if res.StatusCode >= 300 {
		Logger.Log.Errorf("non-200 graph api code: %d, body: %s", res.StatusCode, string(body))
		return nil, errors.Errorf("graph api returned status %d", res.StatusCode)
	}

	// Graph reports some failures inside a 2xx body as a top-level error
	// object, which must be treated the same as a transport failure.
	envelope := graphEnvelope{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(err, "fail to decode graph api response")
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}

	return envelope.Data, nil
}
