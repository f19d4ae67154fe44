package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeReportUsage     JobType = "report_usage"
	JobTypeRecountProducts JobType = "recount_products"
	JobTypeSendMail        JobType = "send_mail"
)

// MaxRetriesFor returns the retry budget for a job type. Usage reports set an
// absolute quantity and run once; the periodic resync repairs a failed one.
func MaxRetriesFor(jobType JobType) int {
	switch jobType {
	case JobTypeReportUsage:
		return 0
	default:
		return DefaultMaxRetries
	}
}

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ReportUsageJobPayload sets the billable quantity on a provider subscription item.
type ReportUsageJobPayload struct {
	SubscriptionItemID string `json:"subscription_item_id"`
	Quantity           int    `json:"quantity"`
}

// ToMap converts the payload to a map for storage
func (p ReportUsageJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"subscription_item_id": p.SubscriptionItemID,
		"quantity":             p.Quantity,
	}
}

func ReportUsageJobPayloadFromMap(data map[string]interface{}) (*ReportUsageJobPayload, error) {
	var payload ReportUsageJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// RecountProductsJobPayload refreshes a restaurant's cached billable product count.
type RecountProductsJobPayload struct {
	RestaurantID string `json:"restaurant_id"`
}

// ToMap converts the payload to a map for storage
func (p RecountProductsJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"restaurant_id": p.RestaurantID,
	}
}

func RecountProductsJobPayloadFromMap(data map[string]interface{}) (*RecountProductsJobPayload, error) {
	var payload RecountProductsJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// SendMailJobPayload carries an already rendered message.
type SendMailJobPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ToMap converts the payload to a map for storage
func (p SendMailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"to":      p.To,
		"subject": p.Subject,
		"body":    p.Body,
	}
}

func SendMailJobPayloadFromMap(data map[string]interface{}) (*SendMailJobPayload, error) {
	var payload SendMailJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

func decodePayload(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
