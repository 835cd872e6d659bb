package importer

import (
	"encoding/json"
	"fmt"
)

// BitwardenParser parses Bitwarden JSON export files (unencrypted).
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

type bitwardenExport struct {
	Encrypted bool              `json:"encrypted"`
	Items     []bitwardenItem   `json:"items"`
	Folders   []bitwardenFolder `json:"folders"`
}

type bitwardenFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type bitwardenItem struct {
	Type          int             `json:"type"`
	Name          string          `json:"name"`
	Notes         string          `json:"notes"`
	FolderID      *string         `json:"folderId"`
	CollectionIDs []string        `json:"collectionIds"`
	Login         *bitwardenLogin `json:"login"`
}

type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	TOTP     string         `json:"totp"`
}

type bitwardenURI struct {
	URI string `json:"uri"`
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden JSON data.
func (p *BitwardenParser) Parse(data []byte) (*ImportResult, error) {
	var export bitwardenExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse Bitwarden JSON: %w", err)
	}
	if export.Encrypted {
		return nil, fmt.Errorf("encrypted Bitwarden exports are not supported")
	}

	folderMap := make(map[string]string)
	for _, f := range export.Folders {
		folderMap[f.ID] = f.Name
	}

	result := newResult()
	counter := 1
	for i := range export.Items {
		item := &export.Items[i]
		if reason := bitwardenSkipReason(item); reason != "" {
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: item.Name, Reason: reason})
			continue
		}

		login := item.Login
		var site string
		if len(login.URIs) > 0 {
			site = login.URIs[0].URI
		}
		if len(login.URIs) > 1 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("item %d (%s): only the first of %d URIs kept", i+1, item.Name, len(login.URIs)))
		}
		if login.TOTP != "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("item %d (%s): TOTP seed not imported", i+1, item.Name))
		}

		result.Items = append(result.Items,
			newItem(item.Name, site, login.Username, login.Password, bitwardenTags(item, folderMap), &counter))
	}
	return result, nil
}

func bitwardenSkipReason(item *bitwardenItem) string {
	switch item.Type {
	case bitwardenTypeLogin:
		if item.Login == nil || IsEmptyOrWhitespace(item.Login.Password) {
			return ReasonNoPassword
		}
		return ""
	case bitwardenTypeSecureNote:
		return ReasonSecureNote
	case bitwardenTypeCard, bitwardenTypeIdentity:
		return ReasonNotLogin
	default:
		return fmt.Sprintf("%s: %d", ReasonUnsupported, item.Type)
	}
}

func bitwardenTags(item *bitwardenItem, folderMap map[string]string) []string {
	var tags []string
	if item.FolderID != nil {
		if name, ok := folderMap[*item.FolderID]; ok && name != "" {
			tags = append(tags, name)
		}
	}
	// org exports reference collections by id
	for _, id := range item.CollectionIDs {
		if name, ok := folderMap[id]; ok && name != "" {
			tags = append(tags, name)
		}
	}
	return tags
}
