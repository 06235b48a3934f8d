package source

// rawTask is one task as it appears in a schedule document. Both the
// start_date/end_date and the shorter start/end spellings are accepted.
type rawTask struct {
	Name      string `json:"name" yaml:"name"`
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
	Start     string `json:"start,omitempty" yaml:"start,omitempty"`
	End       string `json:"end,omitempty" yaml:"end,omitempty"`
}

// rawDocument is the object form of a schedule document. A bare list of
// tasks is accepted too.
type rawDocument struct {
	Project string    `json:"project,omitempty" yaml:"project,omitempty"`
	Tasks   []rawTask `json:"tasks" yaml:"tasks"`
}
