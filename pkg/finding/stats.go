package finding

// Stats summarizes a slice of findings along the dimensions the
// reporting layers group by.
type Stats struct {
	Total       int               `json:"total"`
	Passed      int               `json:"passed_count"`
	Failed      int               `json:"failed_count"`
	BySeverity  map[Severity]int  `json:"by_severity"`
	ByStatus    map[Status]int    `json:"by_status"`
	ByService   map[string]int    `json:"by_service"`
	ByFramework map[Framework]int `json:"by_framework"`
}

// StatsFor computes Stats over findings in a single pass.
func StatsFor(findings []Finding) Stats {
	s := Stats{
		BySeverity:  make(map[Severity]int),
		ByStatus:    make(map[Status]int),
		ByService:   make(map[string]int),
		ByFramework: make(map[Framework]int),
	}
	for _, f := range findings {
		s.Total++
		s.BySeverity[f.Severity]++
		s.ByStatus[f.Status]++
		if f.Service != "" {
			s.ByService[f.Service]++
		}
		s.ByFramework[f.Framework]++
		switch f.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		}
	}
	return s
}
