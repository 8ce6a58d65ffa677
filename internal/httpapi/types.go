package httpapi

type RunStatus struct {
	LastRunAt        string `json:"last_run_at"`
	LastOkAt         string `json:"last_ok_at"`
	LastError        string `json:"last_error"`
	LastRowsAppended int    `json:"last_rows_appended"`
	Running          bool   `json:"running"`
}
