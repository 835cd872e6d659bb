package importer

import (
	"fmt"
	"strings"
	"testing"
)

func TestOnePasswordParser_Source(t *testing.T) {
	p := &OnePasswordParser{}
	if p.Source() != Source1Password {
		t.Errorf("Source() = %q, want %q", p.Source(), Source1Password)
	}
}

func TestOnePasswordParser_Parse(t *testing.T) {
	tests := []struct {
		name         string
		csvData      string
		wantItems    int
		wantSkipped  int
		wantWarnings int
		wantError    bool
		checkFirst   func(t *testing.T, it *ImportedItem)
	}{
		{
			name: "standard login entry",
			csvData: `Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
Work Mail,https://mail.example.com,alice,Zx9!qL2#vB7$,,true,false,"work, email",Primary inbox`,
			wantItems: 1,
			checkFirst: func(t *testing.T, it *ImportedItem) {
				if it.Item.Title != "Work Mail" {
					t.Errorf("Title = %q, want %q", it.Item.Title, "Work Mail")
				}
				if it.Item.Site != "https://mail.example.com" {
					t.Errorf("Site = %q, want %q", it.Item.Site, "https://mail.example.com")
				}
				if it.Item.Username != "alice" {
					t.Errorf("Username = %q, want %q", it.Item.Username, "alice")
				}
				if len(it.Tags) != 2 || it.Tags[0] != "work" || it.Tags[1] != "email" {
					t.Errorf("Tags = %v, want [work email]", it.Tags)
				}
			},
		},
		{
			name: "OTP and archived warnings",
			csvData: `Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
Old,https://old.example.com,bob,pw,otpauth://totp/x?secret=ABC,false,true,,`,
			wantItems:    1,
			wantWarnings: 2,
		},
		{
			name: "no password skipped",
			csvData: `Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
Note only,,,,,false,false,,some note`,
			wantSkipped: 1,
		},
		{
			name: "fallback title from website",
			csvData: `Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
,https://www.example.org:8443/login,bob,pw,,false,false,,`,
			wantItems: 1,
			checkFirst: func(t *testing.T, it *ImportedItem) {
				if it.Item.Title != "example.org" {
					t.Errorf("Title = %q, want %q", it.Item.Title, "example.org")
				}
			},
		},
		{
			name: "missing title column",
			csvData: `Website,Username,Password
https://example.com,bob,pw`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &OnePasswordParser{}
			result, err := p.Parse([]byte(tt.csvData))
			if tt.wantError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Items) != tt.wantItems {
				t.Errorf("Items count = %d, want %d", len(result.Items), tt.wantItems)
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("Skipped = %v, want %d", result.Skipped, tt.wantSkipped)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %v, want %d", result.Warnings, tt.wantWarnings)
			}
			if tt.checkFirst != nil && len(result.Items) > 0 {
				tt.checkFirst(t, result.Items[0])
			}
		})
	}
}

func TestOnePasswordParser_LongTitleTruncated(t *testing.T) {
	long := strings.Repeat("é", 300)
	csvData := "Title,Website,Username,Password\n" + long + ",,,pw\n"

	p := &OnePasswordParser{}
	result, err := p.Parse([]byte(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := []rune(result.Items[0].Item.Title); len(got) != 256 {
		t.Errorf("Title length = %d runes, want 256", len(got))
	}
}

func TestOnePasswordParser_LargeFile(t *testing.T) {
	var b strings.Builder
	b.WriteString("Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "Site %d,https://site%d.com,user%d,pass%d,,false,false,,\n", i, i, i, i)
	}

	p := &OnePasswordParser{}
	result, err := p.Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1000 {
		t.Errorf("Items count = %d, want 1000", len(result.Items))
	}
}
