// Package queue moves enhancement jobs through Redis with asynq so that
// dispatch survives a slow HTTP handler and can be drained on shutdown.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/enhance"
)

const TypeEnhancePost = "enhance:post"

func NewEnhanceTask(job enhance.Job) (*asynq.Task, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal enhance payload: %w", err)
	}
	return asynq.NewTask(TypeEnhancePost, body), nil
}

func ParseEnhancePayload(task *asynq.Task) (enhance.Job, error) {
	var job enhance.Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return enhance.Job{}, fmt.Errorf("unmarshal enhance payload: %w", err)
	}
	if job.RunID == uuid.Nil {
		return enhance.Job{}, fmt.Errorf("unmarshal enhance payload: run_id is missing")
	}
	return job, nil
}

// RedisOpt parses a redis:// URL into asynq connection options.
func RedisOpt(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opt, nil
}
