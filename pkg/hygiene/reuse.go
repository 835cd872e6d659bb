// Package hygiene aggregates per-password analysis into vault-wide metrics:
// reuse, aging, a composite health score and the radar profile.
//
// Every function is pure over the item slice it receives. Results are
// derived views and are never persisted.
package hygiene

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/forest6511/hygienectl/pkg/credential"
)

// ReuseMap maps an item id to the size of the group sharing its password.
// Items with a unique password are absent.
type ReuseMap map[string]int

// ReuseGroup is one set of items sharing the same password.
type ReuseGroup struct {
	IDs    []string `json:"ids"`
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
}

// FindReuseGroups groups items by exact password equality and returns groups
// of two or more, largest first. Empty passwords are ignored.
//
// Passwords are compared through HMAC-SHA256 under a key generated for this
// call, so plaintext never becomes a map key and the digests are useless
// once the call returns.
func FindReuseGroups(items []credential.Item) []ReuseGroup {
	key := make([]byte, 32)
	// crypto/rand.Read does not return an error on supported platforms
	_, _ = rand.Read(key)

	byHash := make(map[string][]int)
	var order []string
	for i, item := range items {
		if item.Password == "" {
			continue
		}
		h := computeValueHash(item.Password, key)
		if _, seen := byHash[h]; !seen {
			order = append(order, h)
		}
		byHash[h] = append(byHash[h], i)
	}

	var groups []ReuseGroup
	for _, h := range order {
		idx := byHash[h]
		if len(idx) < 2 {
			continue
		}
		g := ReuseGroup{Count: len(idx)}
		for _, i := range idx {
			g.IDs = append(g.IDs, items[i].ID)
			g.Titles = append(g.Titles, items[i].Title)
		}
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}

// CheckReuse returns the ReuseMap for items.
func CheckReuse(items []credential.Item) ReuseMap {
	reuse := make(ReuseMap)
	for _, g := range FindReuseGroups(items) {
		for _, id := range g.IDs {
			reuse[id] = g.Count
		}
	}
	return reuse
}

// computeValueHash computes HMAC-SHA256 of a value with the per-call key.
func computeValueHash(value string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}
