package dataservice

import "time"

// Appointment statuses shared by appointments and visits.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// CareClient is a person receiving care.
type CareClient struct {
	ID            int64     `json:"id,omitempty"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address"`
	CareChecklist []string  `json:"care_checklist,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// FullName joins first and last name.
func (c CareClient) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Appointment is a scheduled block of care for a client.
type Appointment struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title"`
	Client      int64     `json:"client"`
	ClientName  string    `json:"client_name,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Repeats     bool      `json:"repeats"`
	Frequency   string    `json:"frequency,omitempty"`
}

// Visit records what happened during an appointment.
type Visit struct {
	ID              int64      `json:"id,omitempty"`
	Appointment     int64      `json:"appointment"`
	ClientName      string     `json:"client_name,omitempty"`
	Status          string     `json:"status"`
	ActualStartTime *time.Time `json:"actual_start_time"`
	ActualEndTime   *time.Time `json:"actual_end_time"`
	AssignedStaff   string     `json:"assigned_staff,omitempty"`
	VisitNotes      string     `json:"visit_notes,omitempty"`
	ChecklistItems  []string   `json:"checklist_items,omitempty"`
}

// InvoiceGroup groups clients billed together.
type InvoiceGroup struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ClientsCount int    `json:"clients_count,omitempty"`
}

// DashboardStats are the headline counters shown on the dashboard.
type DashboardStats struct {
	TotalClients       int `json:"total_clients"`
	ActiveAppointments int `json:"active_appointments"`
	TodayVisits        int `json:"today_visits"`
	PendingInvoices    int `json:"pending_invoices"`
}
