package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"arbscan/types"

	"gopkg.in/yaml.v3"
)

// KeyGroup is a named set of aggregator API keys, usually one account each.
type KeyGroup struct {
	Name string   `yaml:"name"`
	Keys []string `yaml:"keys"`
}

// LoadAPIKeys reads the keys file and flattens its groups in file order.
// Blank and repeated keys are dropped.
func LoadAPIKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api keys: %w", err)
	}

	var groups []KeyGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse api keys: %w", err)
	}

	var keys []string
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, k := range g.Keys {
			k = strings.TrimSpace(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("api keys file has no keys")
	}
	return keys, nil
}

// KeyRange returns the keys a scan job may use.
func KeyRange(keys []string, job types.ScanJob) ([]string, error) {
	to := job.KeysTo
	if to == 0 {
		to = len(keys)
	}
	if job.KeysFrom < 0 || job.KeysFrom >= to || to > len(keys) {
		return nil, fmt.Errorf("key range [%d:%d] out of %d keys", job.KeysFrom, job.KeysTo, len(keys))
	}
	return keys[job.KeysFrom:to], nil
}
