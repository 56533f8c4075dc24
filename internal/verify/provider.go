package verify

import "strings"

// ProviderOther is the classification for MX hosts that match no known
// provider.
const ProviderOther = "other"

// providerPatterns maps MX hostname substrings to providers. Order
// matters: the first match across the preference-sorted hosts wins.
var providerPatterns = []struct {
	name     string
	patterns []string
}{
	{"google", []string{"google.com", "googlemail.com", "gmail-smtp-in", "aspmx.l.google"}},
	{"microsoft", []string{"outlook.com", "protection.outlook", "hotmail", "microsoft.com"}},
	{"ionos", []string{"ionos."}},
	{"barracuda", []string{"barracudanetworks.com", "ess.barracuda"}},
	{"proofpoint", []string{"pphosted.com", "proofpoint.com"}},
	{"mimecast", []string{"mimecast.com"}},
	{"ovh", []string{"ovh.net", "ovh.com"}},
	{"zoho", []string{"zoho.com", "zoho.eu"}},
	{"yahoo", []string{"yahoodns.net", "yahoo.com"}},
	{"icloud", []string{"icloud.com", "apple.com"}},
}

// scoredProviders get a confidence bonus: infrastructure that enforces
// real mailbox checks at RCPT time.
var scoredProviders = map[string]bool{
	"google":    true,
	"microsoft": true,
	"icloud":    true,
	"zoho":      true,
}

// DetectProvider classifies the mail infrastructure behind the MX
// records, checking hosts in preference order.
func DetectProvider(mx []MX) string {
	for _, rec := range mx {
		host := strings.ToLower(rec.Host)
		for _, p := range providerPatterns {
			for _, pattern := range p.patterns {
				if strings.Contains(host, pattern) {
					return p.name
				}
			}
		}
	}
	return ProviderOther
}
