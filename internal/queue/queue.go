package queue

import (
	"github.com/maheshrc27/postflow/internal/service"
)

const (
	TaskTypePublishPost = "post:publish"
	// QueueName is the broker queue scheduled posts are enqueued on.
	QueueName = "posts"
)

type PublishPostPayload struct {
	PostID string `json:"post_id"`
	UserID int64  `json:"user_id"`
}

// Queue consumes publish tasks from the broker.
type Queue struct {
	ps service.PublishService
}

func NewQueue(ps service.PublishService) *Queue {
	return &Queue{ps: ps}
}
