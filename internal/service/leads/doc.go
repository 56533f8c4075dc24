// Package leads manages the people whose mailboxes the verifier
// discovers.
//
// Creation is an upsert: a lead is identified within its workspace by
// LinkedIn URL when one is given, otherwise by the case-insensitive
// (domain, first name, last name, company) tuple. Verification fields
// on a lead are written only by the job executor; this service owns the
// naming and funnel fields.
package leads
