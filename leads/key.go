package leads

import (
	"fmt"
	"strings"
	"time"
)

// GroupedLeadKey identifies the lead for one lister, seeker and optional listing
func GroupedLeadKey(listerType string, listerID, seekerID uint, listingID *uint) string {
	listing := "-"
	if listingID != nil {
		listing = fmt.Sprintf("%d", *listingID)
	}
	return fmt.Sprintf("%s:%d:%d:%s", listerType, listerID, seekerID, listing)
}

// NormalizeActionDate accepts YYYYMMDD or YYYY-MM-DD and returns the compact form
func NormalizeActionDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	compact := strings.ReplaceAll(s, "-", "")
	if _, err := time.Parse(CompactDateLayout, compact); err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYYMMDD or YYYY-MM-DD", s)
	}
	return compact, nil
}
