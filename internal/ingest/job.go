package ingest

import (
	"encoding/json"
	"time"

	"github.com/alexanxin/ideaspire-sub000/internal/model"
)

// Job is one batch of generated ideas waiting on the ingest queue.
type Job struct {
	Topic     string            `json:"topic"`
	Ideas     []model.IdeaInput `json:"ideas"`
	Attempts  int               `json:"attempts"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (j Job) Encode() (string, error) {
	raw, err := json.Marshal(j)
	return string(raw), err
}

func DecodeJob(data string) (Job, error) {
	var j Job
	err := json.Unmarshal([]byte(data), &j)
	return j, err
}
