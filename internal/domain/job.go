package domain

import "time"

type JobState string

const (
	JobStateCreated   JobState = "created"
	JobStateStreaming JobState = "streaming"
	JobStateComplete  JobState = "complete"
)

// EncodingParams describes what a pipeline should produce.
type EncodingParams struct {
	SourcePath  string `json:"-"`
	Codec       Codec  `json:"codec"`
	BitrateBits int    `json:"bitrate_bits"`
}

// JobInfo is a read-only view of a live job.
type JobInfo struct {
	Handle      Handle         `json:"handle"`
	Params      EncodingParams `json:"params"`
	State       JobState       `json:"state"`
	BytesServed int64          `json:"bytes_served"`
	CreatedAt   time.Time      `json:"created_at"`
}
