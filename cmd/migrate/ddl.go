package main

import (
	"fmt"
	"strings"
)

type databasePath struct {
	Project  string
	Instance string
	Database string
}

// parseDatabasePath splits projects/P/instances/I/databases/D.
func parseDatabasePath(s string) (databasePath, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 6 || parts[0] != "projects" || parts[2] != "instances" || parts[4] != "databases" {
		return databasePath{}, fmt.Errorf("expected projects/P/instances/I/databases/D, got %q", s)
	}
	for _, p := range []string{parts[1], parts[3], parts[5]} {
		if p == "" {
			return databasePath{}, fmt.Errorf("empty segment in %q", s)
		}
	}
	return databasePath{Project: parts[1], Instance: parts[3], Database: parts[5]}, nil
}

func (d databasePath) instancePath() string {
	return fmt.Sprintf("projects/%s/instances/%s", d.Project, d.Instance)
}

func (d databasePath) path() string {
	return d.instancePath() + "/databases/" + d.Database
}

// splitDDLStatements drops comment lines and splits on semicolons.
func splitDDLStatements(content string) []string {
	var cleaned []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
