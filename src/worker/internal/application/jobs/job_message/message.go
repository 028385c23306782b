package job_message

// JobIdentifier is the part of every queue message that names the job
// row the work belongs to.
type JobIdentifier struct {
	JobID string `json:"job_id"`
}
