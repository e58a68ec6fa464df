package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind selects the workflow a job runs.
type Kind string

const (
	KindCreateHero  Kind = "create_hero"
	KindCreateQuest Kind = "create_quest"
	KindStartQuest  Kind = "start_quest"
	KindStoryText   Kind = "story_text"
)

var (
	ErrNotFound   = errors.New("job not found")
	ErrNotPending = errors.New("job already finished")
)

type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	Kind    Kind           `gorm:"type:varchar(32);index;not null"`
	Payload datatypes.JSON `gorm:"not null"`

	Status Status `gorm:"type:varchar(16);index;not null"`

	// Filled when completed
	Result datatypes.JSON

	// Filled when failed
	Error     *string `gorm:"type:text"`
	ErrorKind *string `gorm:"type:varchar(32)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "jobs" }

// NewID returns a lexically sortable job id.
func NewID() string {
	return ulid.Make().String()
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if len(j.Payload) == 0 {
		return fmt.Errorf("job %s: empty payload", j.ID)
	}
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("job %s: decode payload: %w", j.ID, err)
	}
	return nil
}

// View is the shape returned to polling clients.
type View struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Status    Status          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	ErrorKind *string         `json:"errorKind,omitempty"`
}

func (j *Job) View() View {
	v := View{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.Status,
		Error:     j.Error,
		ErrorKind: j.ErrorKind,
	}
	if j.Status == StatusCompleted && len(j.Result) > 0 {
		v.Result = json.RawMessage(j.Result)
	}
	return v
}
