package domain

// JobFields is the structured form of one job posting, produced by exactly
// one extraction tier (deterministic ATS parser or the oracle) and then
// postprocessed. Pointer fields are tri-state: nil means the page did not
// say.
type JobFields struct {
	Title           string   `json:"title"`
	CompanyName     string   `json:"company_name"`
	Location        string   `json:"location"`
	RemoteOK        *bool    `json:"remote_ok"`
	JobType         string   `json:"job_type"`
	DescriptionHTML string   `json:"description_html"`
	MinSalary       *float64 `json:"min_salary"`
	MaxSalary       *float64 `json:"max_salary"`
	ApplicationLink string   `json:"application_link"`
}
