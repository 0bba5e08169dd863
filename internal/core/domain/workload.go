package domain

// WorkloadItem is one row of the technicians overview.
type WorkloadItem struct {
	TechnicianID       int64
	Name               string
	AvailabilityStatus AvailabilityStatus
	ActiveTickets      int
	Capacity           int
	WorkloadRatio      float64
}

// NewWorkloadItem projects a technician into a workload row.
func NewWorkloadItem(t Technician) WorkloadItem {
	return WorkloadItem{
		TechnicianID:       t.ID,
		Name:               t.Name,
		AvailabilityStatus: t.AvailabilityStatus,
		ActiveTickets:      t.ActiveCount(),
		Capacity:           t.Capacity,
		WorkloadRatio:      t.WorkloadRatio(),
	}
}
