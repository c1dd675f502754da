package model

import "time"

// CampaignFile is the metadata file name inside a campaign directory.
const CampaignFile = "campaign.json"

// CampaignStatus is the lifecycle state recorded in campaign.json.
type CampaignStatus string

const (
	CampaignRunning     CampaignStatus = "running"
	CampaignCompleted   CampaignStatus = "completed"
	CampaignFailed      CampaignStatus = "failed"
	CampaignInterrupted CampaignStatus = "interrupted"
)

// Campaign is the metadata of one scheduled execution of a test matrix.
// It is written to the campaign directory next to the ledger and artifacts.
type Campaign struct {
	// Unique ID of this launch (UUID). A resumed campaign gets a new ID but
	// keeps its directory and ledger.
	ID string `json:"id"`
	// Campaign name, also the directory name below the output root
	Name string `json:"name"`
	// Benchmark kind (throughput, firewall, latency, reconfiguration, misc)
	Kind string `json:"kind"`
	// Timestamp when this launch started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Status at the time the file was last written
	Status CampaignStatus `json:"status"`
	// Wall-clock duration of this launch
	Duration time.Duration `json:"duration"`
	// Estimated duration from the plan
	Estimate time.Duration `json:"estimate"`
	// Measurement duration per repetition
	MeasurementDuration time.Duration `json:"measurement_duration"`
	// Dimensions whose change triggers a reconfiguration
	ReconfigurationKey []string `json:"reconfiguration_key,omitempty"`
	// Number of configurations in the expanded matrix
	Records int `json:"records"`
	// Number of configurations completed so far (across launches)
	Done int `json:"done"`
	// Number of configurations whose execution failed in this launch
	Failed int `json:"failed"`
	// Whether this launch resumed an earlier one
	Resumed bool `json:"resumed,omitempty"`
	// Git information of the benchmark sources
	Git *Git `json:"git,omitempty"`
	// Execution targets used by this launch
	Targets []Target `json:"targets,omitempty"`
	// Error message when Status is failed
	Error string `json:"error,omitempty"`
}

// Git contains git repository information
type Git struct {
	// Git commit hash at time of execution
	Commit string `json:"commit,omitempty"`
	// Git branch at time of execution
	Branch string `json:"branch,omitempty"`
}

// Target contains information about an execution environment
type Target struct {
	// Name used in the campaign configuration (e.g. host, loadgen, guest)
	Name string `json:"name"`
	// Remote host (e.g., "user@host" for SSH), empty for local execution
	RemoteHost string `json:"remote_host,omitempty"`
	// Operating system (e.g., "linux", "darwin")
	OS string `json:"os,omitempty"`
	// Architecture (e.g., "amd64", "arm64")
	Arch string `json:"arch,omitempty"`
}
