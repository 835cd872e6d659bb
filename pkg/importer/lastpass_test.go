package importer

import (
	"fmt"
	"strings"
	"testing"
)

func TestLastPassParser_Source(t *testing.T) {
	p := &LastPassParser{}
	if p.Source() != SourceLastPass {
		t.Errorf("Source() = %q, want %q", p.Source(), SourceLastPass)
	}
}

func TestLastPassParser_Parse(t *testing.T) {
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
			csvData: `url,username,password,totp,extra,name,grouping,fav
https://github.com,johndoe,mysecretpass123,,My GitHub notes,GitHub,Work,1`,
			wantItems: 1,
			checkFirst: func(t *testing.T, it *ImportedItem) {
				if it.Item.Title != "GitHub" {
					t.Errorf("Title = %q, want %q", it.Item.Title, "GitHub")
				}
				if it.Item.Username != "johndoe" {
					t.Errorf("Username = %q, want %q", it.Item.Username, "johndoe")
				}
				if it.Item.Password != "mysecretpass123" {
					t.Errorf("Password = %q, want %q", it.Item.Password, "mysecretpass123")
				}
				if it.Item.Site != "https://github.com" {
					t.Errorf("Site = %q, want %q", it.Item.Site, "https://github.com")
				}
				if len(it.Tags) != 1 || it.Tags[0] != "Work" {
					t.Errorf("Tags = %v, want [Work]", it.Tags)
				}
			},
		},
		{
			name: "TOTP dropped with warning",
			csvData: `url,username,password,totp,extra,name,grouping,fav
https://github.com,johndoe,pass,JBSWY3DPEHPK3PXP,,GitHub,,`,
			wantItems:    1,
			wantWarnings: 1,
		},
		{
			name: "secure note skipped",
			csvData: `url,username,password,totp,extra,name,grouping,fav
http://sn,,,,"This is a secure note",My Secret Note,Notes,0`,
			wantSkipped: 1,
		},
		{
			name: "entry without password skipped",
			csvData: `url,username,password,totp,extra,name,grouping,fav
https://example.com,bob,,,,Example,,`,
			wantSkipped: 1,
		},
		{
			name: "HTML entities decoded",
			csvData: `url,username,password,totp,extra,name,grouping,fav
https://example.com,user,p&amp;ss&lt;1&gt;,,,Tom &amp; Jerry,,`,
			wantItems: 1,
			checkFirst: func(t *testing.T, it *ImportedItem) {
				if it.Item.Title != "Tom & Jerry" {
					t.Errorf("Title = %q, want %q", it.Item.Title, "Tom & Jerry")
				}
				if it.Item.Password != "p&ss<1>" {
					t.Errorf("Password = %q, want %q", it.Item.Password, "p&ss<1>")
				}
			},
		},
		{
			name: "uppercase header",
			csvData: `URL,Username,Password,TOTP,Extra,Name,Grouping,Fav
https://github.com,johndoe,pass,,,GitHub,,`,
			wantItems: 1,
		},
		{
			name: "column count mismatch",
			csvData: `url,username,password,totp,extra,name,grouping,fav
https://github.com,johndoe,pass,GitHub
https://gitlab.com,jane,pass2,,,GitLab,,`,
			wantItems:    1,
			wantWarnings: 1,
		},
		{
			name: "BOM stripped",
			csvData: "\xEF\xBB\xBF" + `url,username,password,totp,extra,name,grouping,fav
https://github.com,johndoe,pass,,,GitHub,,`,
			wantItems: 1,
		},
		{
			name: "missing name column",
			csvData: `url,username,password
https://github.com,johndoe,pass`,
			wantError: true,
		},
		{
			name:      "empty input",
			csvData:   ``,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &LastPassParser{}
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

func TestLastPassParser_SecureNoteReason(t *testing.T) {
	csvData := `url,username,password,totp,extra,name,grouping,fav
http://sn,,,,note body,Wifi,,0`

	p := &LastPassParser{}
	result, err := p.Parse([]byte(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != ReasonSecureNote {
		t.Errorf("Skipped = %v, want secure note", result.Skipped)
	}
}

func TestLastPassParser_LazyQuotes(t *testing.T) {
	csvData := `url,username,password,totp,extra,name,grouping,fav
https://example.com,user,pa"ss,,,Quoted "Name",,`

	p := &LastPassParser{}
	result, err := p.Parse([]byte(csvData))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("Items count = %d, want 1", len(result.Items))
	}
	if result.Items[0].Item.Password != `pa"ss` {
		t.Errorf("Password = %q, want %q", result.Items[0].Item.Password, `pa"ss`)
	}
}

func TestLastPassParser_LargeFile(t *testing.T) {
	var b strings.Builder
	b.WriteString("url,username,password,totp,extra,name,grouping,fav\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "https://site%d.com,user%d,pass%d,,,Site %d,,0\n", i, i, i, i)
	}

	p := &LastPassParser{}
	result, err := p.Parse([]byte(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 1000 {
		t.Errorf("Items count = %d, want 1000", len(result.Items))
	}
}
