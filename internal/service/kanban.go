package service

import "github.com/boddenberg/insurance-crm-web/internal/domain"

// KanbanColumn is one pipeline column of the kanban board.
type KanbanColumn struct {
	Status domain.LeadStatus
	Leads  []domain.Lead
}

// Label returns the column heading.
func (c KanbanColumn) Label() string { return c.Status.Label() }

// Count returns the number of cards in the column.
func (c KanbanColumn) Count() int { return len(c.Leads) }

// GroupByStatus partitions leads into one column per pipeline status, in
// pipeline order. All six columns are always present; leads with an unknown
// status are dropped.
func GroupByStatus(leads []domain.Lead) []KanbanColumn {
	cols := make([]KanbanColumn, len(domain.LeadStatuses))
	index := make(map[domain.LeadStatus]int, len(domain.LeadStatuses))
	for i, s := range domain.LeadStatuses {
		cols[i] = KanbanColumn{Status: s, Leads: []domain.Lead{}}
		index[s] = i
	}
	for _, l := range leads {
		if i, ok := index[l.Status]; ok {
			cols[i].Leads = append(cols[i].Leads, l)
		}
	}
	return cols
}

// FilterLeads returns the leads in the given status, preserving order.
func FilterLeads(leads []domain.Lead, status domain.LeadStatus) []domain.Lead {
	out := []domain.Lead{}
	for _, l := range leads {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

// TaskPartitions splits call tasks by status.
type TaskPartitions struct {
	Pending   []domain.CallTask
	Done      []domain.CallTask
	Missed    []domain.CallTask
	Cancelled []domain.CallTask
}

// Total returns the number of partitioned tasks.
func (p TaskPartitions) Total() int {
	return len(p.Pending) + len(p.Done) + len(p.Missed) + len(p.Cancelled)
}

// PartitionTasks groups tasks by status, preserving order within each group.
func PartitionTasks(tasks []domain.CallTask) TaskPartitions {
	p := TaskPartitions{
		Pending:   []domain.CallTask{},
		Done:      []domain.CallTask{},
		Missed:    []domain.CallTask{},
		Cancelled: []domain.CallTask{},
	}
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskPending:
			p.Pending = append(p.Pending, t)
		case domain.TaskDone:
			p.Done = append(p.Done, t)
		case domain.TaskMissed:
			p.Missed = append(p.Missed, t)
		case domain.TaskCancelled:
			p.Cancelled = append(p.Cancelled, t)
		}
	}
	return p
}
