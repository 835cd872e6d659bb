package importer

import (
	"fmt"
	"strings"
)

// OnePasswordParser parses 1Password CSV export files:
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
type OnePasswordParser struct{}

// 1Password CSV column names (header-based parsing).
const (
	op1ColTitle    = "Title"
	op1ColWebsite  = "Website"
	op1ColUsername = "Username"
	op1ColPassword = "Password"
	op1ColOTPAuth  = "OTPAuth"
	op1ColArchived = "Archived"
	op1ColTags     = "Tags"
)

// Source returns the source type for this parser.
func (p *OnePasswordParser) Source() Source {
	return Source1Password
}

// Parse parses 1Password CSV data.
func (p *OnePasswordParser) Parse(data []byte) (*ImportResult, error) {
	rows, err := readCSV(data, func(s string) string { return s }, op1ColTitle)
	if err != nil {
		return nil, err
	}

	result := newResult()
	counter := 1
	for _, r := range rows.records {
		if r.err != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %s", r.num, r.err))
			continue
		}

		title := r.get(op1ColTitle)
		password := r.get(op1ColPassword)
		if IsEmptyOrWhitespace(password) {
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: title, Reason: ReasonNoPassword})
			continue
		}
		if r.get(op1ColOTPAuth) != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: TOTP seed not imported", r.num))
		}
		if strings.EqualFold(r.get(op1ColArchived), "true") {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: archived entry imported", r.num))
		}

		result.Items = append(result.Items,
			newItem(title, r.get(op1ColWebsite), r.get(op1ColUsername), password, splitTags(r.get(op1ColTags)), &counter))
	}
	return result, nil
}

// splitTags splits a comma-separated tag list, dropping empty entries.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
