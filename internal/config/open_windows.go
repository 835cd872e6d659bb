//go:build windows

package config

import (
	"fmt"
	"os"
)

// openConfigFile opens the config file on Windows.
// Windows doesn't have O_NOFOLLOW; creating symlinks requires special
// privileges there.
func openConfigFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("config: failed to open file: %w", err)
	}
	return f, nil
}

// checkFileOwnership on Windows is a no-op; ownership is governed by ACLs.
func checkFileOwnership(_ os.FileInfo) error {
	return nil
}
