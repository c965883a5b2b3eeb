// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile replaces path with data in one rename. Config saves and
// report exports go through here so a crash never leaves half a file.
// Parent directories are created 0700.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	// rename is only atomic within one filesystem
	tmp, err := os.CreateTemp(dir, ".fleetwise-*.tmp")
	if err != nil {
		return fmt.Errorf("stage %s: %w", target, err)
	}
	staged := tmp.Name()
	defer func() {
		if staged != "" {
			_ = tmp.Close()
			_ = os.Remove(staged)
		}
	}()

	steps := []struct {
		what string
		fn   func() error
	}{
		{"write", func() error { _, err := tmp.Write(data); return err }},
		{"sync", tmp.Sync},
		{"close", tmp.Close},
		{"chmod", func() error { return os.Chmod(staged, perm) }},
		{"rename", func() error { return os.Rename(staged, target) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s %s: %w", s.what, target, err)
		}
	}
	staged = ""
	return nil
}
