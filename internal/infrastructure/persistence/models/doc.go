// Package models contains GORM persistence models that map to database tables.
// They are kept apart from domain entities so the domain layer carries no ORM
// tags; each model converts with ToDomain / FromDomain.
//
// Tables:
//   - corporates, invoices: aggregates owned by this service
//   - balances, balance_invoices: the accrual ledger
//   - settlement_*: read-only views of the settlement executor's output
//   - notifications, outbox_events: post-commit side effects
package models
