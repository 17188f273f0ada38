// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"sort"
	"strconv"
	"testing"
)

// OpenDescriptors returns the sorted descriptor numbers open in the
// calling process. The descriptor used to read /proc/self/fd is closed
// by the time entries are resolved and is excluded.
func OpenDescriptors(t *testing.T) []int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skipf("descriptor table not available: %v", err)
	}

	var descriptors []int
	for _, entry := range entries {
		number, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		if _, err := os.Readlink("/proc/self/fd/" + entry.Name()); err != nil {
			continue
		}
		descriptors = append(descriptors, number)
	}
	sort.Ints(descriptors)
	return descriptors
}

// DescriptorTarget returns what descriptor number refers to, for
// failure messages.
func DescriptorTarget(number int) string {
	target, err := os.Readlink("/proc/self/fd/" + strconv.Itoa(number))
	if err != nil {
		return "?"
	}
	return target
}
