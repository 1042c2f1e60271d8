package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagestreamhq/pagestream/model"
	"github.com/pagestreamhq/pagestream/protocol"
	"github.com/pagestreamhq/pagestream/utils"
	"github.com/pagestreamhq/pagestream/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

func marshal(t *testing.T, v interface{}) []byte {
	payload, err := json.Marshal(v)
	require.Nil(t, err)
	return payload
}

func validPostMessage(id string) protocol.PostMessage {
	return protocol.PostMessage{
		Id:          id,
		Message:     "hello",
		CreatedTime: "2021-10-01T12:00:00+0000",
		FromName:    "Some Page",
		FromId:      "page_1",
		PageId:      "page_1",
		Type:        "text",
	}
}

// Poison classification never touches the store, so a nil-DB processor is
// enough for these cases.
func TestPostsHandlerPoisonClassification(t *testing.T) {
	h := NewPostsHandler(NewProcessor(nil, nil))

	result, err := h.Process([]byte("not json at all"))
	assert.Equal(t, PoisonMessage, result)
	assert.NotNil(t, err)

	msg := validPostMessage("")
	result, _ = h.Process(marshal(t, msg))
	assert.Equal(t, PoisonMessage, result)

	msg = validPostMessage("page_1_111")
	msg.FromId = ""
	msg.PageId = ""
	result, _ = h.Process(marshal(t, msg))
	assert.Equal(t, PoisonMessage, result)

	msg = validPostMessage("page_1_111")
	msg.CreatedTime = "yesterday-ish"
	result, _ = h.Process(marshal(t, msg))
	assert.Equal(t, PoisonMessage, result)
}

func TestCommentsHandlerPoisonClassification(t *testing.T) {
	h := NewCommentsHandler(NewProcessor(nil, nil))

	result, _ := h.Process([]byte("{"))
	assert.Equal(t, PoisonMessage, result)

	result, _ = h.Process(marshal(t, protocol.CommentMessage{
		Id: "111_222", FromId: "user_9", CreatedTime: "2021-10-01T13:00:00+0000",
	}))
	assert.Equal(t, PoisonMessage, result)
}

func TestInboxesHandlerPoisonClassification(t *testing.T) {
	h := NewInboxesHandler(NewProcessor(nil, nil))

	result, _ := h.Process(marshal(t, protocol.InboxMessage{
		Id: "t_1", FromId: "user_9", CreatedTime: 0,
	}))
	assert.Equal(t, PoisonMessage, result)

	result, _ = h.Process(marshal(t, protocol.InboxMessage{
		Id: "t_1", FromId: "user_9", CreatedTime: -5,
	}))
	assert.Equal(t, PoisonMessage, result)
}

func TestPostsHandlerPersistsAndDeduplicates(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	h := NewPostsHandler(NewProcessor(db, nil))

	payload := marshal(t, validPostMessage("page_1_111"))

	result, err := h.Process(payload)
	require.Nil(t, err)
	assert.Equal(t, Persisted, result)

	var post model.Post
	require.Nil(t, db.Where("external_id = ?", "page_1_111").First(&post).Error)
	assert.Equal(t, model.PostStatusInactive, post.Status)
	assert.Equal(t, "https://www.facebook.com/posts/page_1_111", post.Permalink)
	assert.Equal(t, time.Date(2021, 10, 1, 12, 0, 0, 0, time.UTC), post.PublishedAt.UTC())

	// The page profile is auto-created as a side effect.
	var profile model.Profile
	require.Nil(t, db.Where("external_id = ?", "page_1").First(&profile).Error)
	assert.Equal(t, model.ProfileKindPage, profile.Kind)
	assert.Equal(t, profile.Id, post.ProfileID)

	// Redelivery of the same external id is an idempotent no-op.
	result, err = h.Process(payload)
	require.Nil(t, err)
	assert.Equal(t, Duplicate, result)

	var count int64
	db.Model(&model.Post{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCommentsHandlerRequiresKnownPost(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	posts := NewPostsHandler(NewProcessor(db, nil))
	comments := NewCommentsHandler(NewProcessor(db, nil))

	commentMsg := protocol.CommentMessage{
		Id:          "111_222",
		Message:     "nice post",
		CreatedTime: "2021-10-01T13:00:00+0000",
		FromName:    "Some User",
		FromId:      "user_9",
		PostId:      "page_1_111",
		Type:        "text",
	}

	// Comment arrives before its post: dropped, not retried.
	result, err := comments.Process(marshal(t, commentMsg))
	assert.Equal(t, MissingDependency, result)
	assert.NotNil(t, err)

	_, err = posts.Process(marshal(t, validPostMessage("page_1_111")))
	require.Nil(t, err)

	result, err = comments.Process(marshal(t, commentMsg))
	require.Nil(t, err)
	assert.Equal(t, Persisted, result)

	var comment model.Comment
	require.Nil(t, db.Where("external_id = ?", "111_222").First(&comment).Error)
	assert.Equal(t, "https://www.facebook.com/111_222", comment.Link)

	// The commenter profile is recorded as a user.
	var profile model.Profile
	require.Nil(t, db.Where("external_id = ?", "user_9").First(&profile).Error)
	assert.Equal(t, model.ProfileKindUser, profile.Kind)
}

func TestInboxesHandlerNormalizesEpochMillis(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	h := NewInboxesHandler(NewProcessor(db, nil))

	sent := time.Date(2021, 10, 1, 14, 30, 0, 0, time.UTC)
	result, err := h.Process(marshal(t, protocol.InboxMessage{
		Id:          "t_msg_1",
		Message:     "hi there",
		CreatedTime: sent.UnixMilli(),
		FromName:    "Some User",
		FromId:      "user_9",
		Type:        "text",
	}))
	require.Nil(t, err)
	assert.Equal(t, Persisted, result)

	var inbox model.InboxMessage
	require.Nil(t, db.Where("external_id = ?", "t_msg_1").First(&inbox).Error)
	assert.Equal(t, sent, inbox.PublishedAt.UTC())
	assert.Equal(t, "https://m.me", inbox.Link)
}

func TestResolveProfileReusesExistingRow(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	p := NewProcessor(db, nil)

	first, err := p.ResolveProfile("user_9", "Some User", model.ProfileKindUser)
	require.Nil(t, err)

	second, err := p.ResolveProfile("user_9", "Some User", model.ProfileKindUser)
	require.Nil(t, err)
	assert.Equal(t, first, second)

	var count int64
	db.Model(&model.Profile{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResolveProfileConcurrentSameActor(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	p := NewProcessor(db, nil)

	const workers = 8
	ids := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			id, err := p.ResolveProfile("page_1", "Some Page", model.ProfileKindPage)
			ids <- id
			errs <- err
		}()
	}

	seen := map[string]bool{}
	for i := 0; i < workers; i++ {
		require.Nil(t, <-errs)
		seen[<-ids] = true
	}
	// Every racer observed the same winning row.
	assert.Len(t, seen, 1)

	var count int64
	db.Model(&model.Profile{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResultString(t *testing.T) {
	for result, expected := range map[Result]string{
		Persisted:         "persisted",
		Duplicate:         "duplicate",
		PoisonMessage:     "poison_message",
		MissingDependency: "missing_dependency",
		TransientFailure:  "transient_failure",
	} {
		assert.Equal(t, expected, fmt.Sprint(result))
	}
}
