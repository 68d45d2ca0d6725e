package admission

// Stats summarises a page of applications.
type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// ComputeStats counts the statuses among `apps`. Total is taken as given, being the size of the whole result set.
func ComputeStats(apps []Application, total int) Stats {
	stats := Stats{Total: total}
	for _, app := range apps {
		switch app.Status {
		case StatusPending:
			stats.Pending++
		case StatusApproved:
			stats.Approved++
		case StatusRejected:
			stats.Rejected++
		}
	}
	return stats
}
