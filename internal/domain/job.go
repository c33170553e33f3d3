package domain

import "time"

// JobStatus represents the lifecycle state of a generation job.
// Values include JobStatusQueued, JobStatusRunning, JobStatusCompleted, and JobStatusFailed.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status can never change again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Stage identifies one step of the fixed generation pipeline.
type Stage string

const (
	// StageQueued is the sentinel value before execution starts.
	// It is not part of the pipeline order.
	StageQueued Stage = "queued"

	StageExtraction  Stage = "extraction"
	StagePlanning    Stage = "planning"
	StageAnimation   Stage = "animation"
	StageNarration   Stage = "narration"
	StageComposition Stage = "composition"
	StageQuality     Stage = "quality"
)

// Stages is the fixed pipeline order. Jobs advance strictly forward
// through this slice and never skip a stage.
var Stages = []Stage{
	StageExtraction,
	StagePlanning,
	StageAnimation,
	StageNarration,
	StageComposition,
	StageQuality,
}

// Index returns the position of s in the pipeline order, or -1 for the
// queued sentinel and unknown values.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the successor stage and true, or the zero Stage and false
// when s is the last stage or not part of the pipeline.
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Stages) {
		return "", false
	}
	return Stages[i+1], true
}

// ParseStage validates a stage name, accepting the queued sentinel.
func ParseStage(name string) (Stage, bool) {
	s := Stage(name)
	if s == StageQueued || s.Index() >= 0 {
		return s, true
	}
	return "", false
}

// Job represents one video-generation request tracked through the pipeline.
type Job struct {
	ID           string    `gorm:"type:text;primaryKey" json:"id"`
	Status       JobStatus `gorm:"type:text;index:idx_jobs_status;default:queued" json:"status"`
	CurrentStage Stage     `gorm:"type:text;default:queued" json:"current_step"`
	Progress     int       `gorm:"default:0" json:"progress"`
	Message      string    `json:"message"`
	Error        string    `json:"error,omitempty"`

	// Input fields, immutable after creation. Concept is free-text;
	// DocumentKey points at the uploaded file in object storage.
	Concept      string `gorm:"type:text" json:"concept,omitempty"`
	DocumentKey  string `gorm:"type:text" json:"document_key,omitempty"`
	DocumentName string `gorm:"type:text" json:"document_name,omitempty"`

	// ArtifactKey is set exactly once, when the job completes.
	ArtifactKey string `gorm:"type:text" json:"artifact_key,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_jobs_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// Clone returns a deep copy of the job. Stores hand out clones so
// readers never observe a partially-updated record.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}
