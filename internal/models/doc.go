// Package models defines the core domain models for Splitledger.
//
// # Expense documents
//
// An Expense is stored and exchanged as one document: its participants,
// items, fees and the split records the allocation engine produced for
// them. The ledger reads these documents; it never writes them.
//
// # Index addressing
//
// Participants are referenced everywhere by their position in
// Expense.Participants: item consumers, item payers, fee consumers and the
// ParticipantIndex of every split record. Removing a participant therefore
// requires rewriting every reference, which is done in one place,
// Expense.RemoveParticipant. Participants also carry a stable ID so callers
// can match them across edits without relying on position.
//
// # Amounts
//
// Amounts on the document are plain float64 values in currency units, the
// shape clients send. Engine code converts them to money.Cents on entry.
package models
