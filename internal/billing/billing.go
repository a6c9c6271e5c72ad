// Package billing holds the pure rules behind invoices and payments: line-item
// computation, settlement status, payment application and reversal, and the
// contract-derived occupancy of rooms and tenants. Nothing here does I/O or
// reads the clock; callers pass the reference time in.
package billing
