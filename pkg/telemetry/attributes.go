// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"fmt"
	"strings"
)

// ParseCustomTags parses a comma-separated list of key=value pairs into a map.
// Example input: "team=payments,region=us-east-1"
func ParseCustomTags(input string) (map[string]string, error) {
	if input == "" {
		return map[string]string{}, nil
	}

	tags := make(map[string]string)
	for _, pair := range strings.Split(input, ",") {
		trimmedPair := strings.TrimSpace(pair)
		if trimmedPair == "" {
			continue
		}

		key, value, ok := strings.Cut(trimmedPair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid tag format '%s': expected key=value", trimmedPair)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty tag key in '%s'", trimmedPair)
		}
		tags[key] = strings.TrimSpace(value)
	}

	return tags, nil
}
