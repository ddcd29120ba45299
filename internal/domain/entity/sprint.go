package entity

// Sprint is a row of the sprint dimension used by pickers and the
// sprint reports. Dates are formatted YYYY-MM-DD at the repository
// boundary; nil means the field is unset in the source system.
type Sprint struct {
	SprintID  int     `json:"sprint_id"`
	Name      string  `json:"name"`
	State     string  `json:"state"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Goal      *string `json:"goal"`
}

// Row is a generic result row for view-backed report queries whose
// column set is owned by the warehouse views.
type Row = map[string]interface{}
