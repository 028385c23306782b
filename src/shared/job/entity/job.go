package jobentity

import (
	"time"

	"github.com/google/uuid"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/jsonlib"
)

const (
	InitialProgressPercentage = 5
)

type Status string

const (
	PendingStatus    Status = "pending"
	ProcessingStatus Status = "processing"
	CompletedStatus  Status = "completed"
	FailedStatus     Status = "failed"
)

// Job tracks one split request from upload to the downloadable
// archive of its seven stems
type Job struct {
	ID           string   `json:"id"`
	FileName     string   `json:"file_name"`
	OriginalKey  string   `json:"original_key"`
	Status       Status   `json:"status"`
	CurrentStage string   `json:"current_stage"`
	Progress     int      `json:"progress"`
	ErrorMessage string   `json:"error_message"`
	StemNames    []string `json:"stem_names"`
	ArchiveKey   string   `json:"archive_key"`
	CreatedAt    string   `json:"created_at"`
	CompletedAt  string   `json:"completed_at"`
}

func NewJob(fileName string, originalKey string) Job {
	return Job{
		FileName:    fileName,
		OriginalKey: originalKey,
		Status:      PendingStatus,
		Progress:    InitialProgressPercentage,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

func (j Job) IsNew() bool {
	return j.ID == ""
}

func (j *Job) CreateID() {
	if !j.IsNew() {
		panic("Cannot assign an ID to a job that already has one")
	}

	j.ID = uuid.New().String()
}

func (j Job) IsTerminal() bool {
	return j.Status == CompletedStatus || j.Status == FailedStatus
}

func (j *Job) MarkCompleted(stemNames []string, archiveKey string) {
	j.Status = CompletedStatus
	j.CurrentStage = ""
	j.Progress = 100
	j.StemNames = stemNames
	j.ArchiveKey = archiveKey
	j.CompletedAt = time.Now().UTC().Format(time.RFC3339)
}

func (j *Job) MarkFailed(message string) {
	j.Status = FailedStatus
	j.ErrorMessage = message
	j.CompletedAt = time.Now().UTC().Format(time.RFC3339)
}

func (j Job) ToMap() (map[string]any, error) {
	return jsonlib.StructToMap(j)
}

func (j *Job) FromMap(m map[string]any) error {
	newJob, err := jsonlib.MapToStruct[Job](m)
	if err != nil {
		return err
	}

	*j = newJob
	return nil
}
