// Package verify implements the email discovery and verification engine:
// candidate generation from name patterns, DNS signal collection (MX,
// SPF, DMARC, provider), SMTP RCPT probing with catch-all detection,
// optional web mention lookup, and signal-based scoring.
//
// The engine never sends mail. SMTP conversations stop after RCPT TO,
// and every network path degrades to the remaining signals instead of
// failing the verification.
package verify
