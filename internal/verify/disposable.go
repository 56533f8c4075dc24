package verify

// Disposable/temporary email domains (subset; extensible without migration).
var disposableDomains = map[string]struct{}{
	"mailinator.com":         {},
	"mailinator.net":         {},
	"guerrillamail.com":      {},
	"guerrillamail.net":      {},
	"tempmail.com":           {},
	"temp-mail.org":          {},
	"10minutemail.com":       {},
	"throwaway.email":        {},
	"maildrop.cc":            {},
	"yopmail.com":            {},
	"getnada.com":            {},
	"fakeinbox.com":          {},
	"trashmail.com":          {},
	"sharklasers.com":        {},
	"guerrillamailblock.com": {},
	"mailnesia.com":          {},
	"dispostable.com":        {},
}

// IsDisposableDomain reports whether the domain is a known throwaway
// mail provider. The domain must already be lowercased.
func IsDisposableDomain(domain string) bool {
	_, ok := disposableDomains[domain]
	return ok
}
