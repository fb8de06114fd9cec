package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry is a concrete Host alias from an ssh config file.
type HostEntry struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description returns a short label for pickers, e.g. "login1.hpc.example.org, user: alice".
func (h HostEntry) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// ListHosts returns the aliases in ~/.ssh/config, sorted. `sgpu init` offers
// them as login node candidates.
func ListHosts() ([]HostEntry, error) {
	return ListHostsFile(filepath.Join(homeDir(), ".ssh", "config"))
}

// ListHostsFile parses path and returns its concrete host aliases, skipping
// wildcard patterns. A missing file yields no hosts and no error.
func ListHostsFile(path string) ([]HostEntry, error) {
	content, _, err := stripMatchBlocks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var hosts []HostEntry
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			entry := HostEntry{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			entry.Port, _ = cfg.Get(alias, "Port")
			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})
	return hosts, nil
}
