// Package dataservice is a thin client for the care REST API: the clients,
// appointments, visits and invoices collections plus the dashboard reads.
// Every non-2xx response, transport failure or undecodable body surfaces as
// an *OperationError matching ErrOperationFailed. Calls are never retried.
package dataservice
