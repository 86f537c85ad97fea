// cmd/service/graphql_test.go
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github-contributions/internal/config"
)

var historyArgs = regexp.MustCompile(`history\(last: (\d+), before: "(\w+) (\d+)"`)

// newGraphQLServer serves a user "octocat" (id U_1) with one public repository whose main
// branch holds commits authored by the user. It counts the history requests it answers.
func newGraphQLServer(t *testing.T, commits int) (*httptest.Server, *int32) {
	t.Helper()
	var historyCalls int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/graphql" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var data string
		switch {
		case strings.Contains(req.Query, "history(last:"):
			atomic.AddInt32(&historyCalls, 1)
			data = historyPage(req.Query)
		case strings.Contains(req.Query, "refs("):
			data = fmt.Sprintf(`{"repository": {"refs": {"totalCount": 1, "pageInfo": {"hasNextPage": false, "endCursor": "r1"},
				"nodes": [{"name": "main", "target": {"oid": "head", "history": {"totalCount": %d}}}]}}}`, commits)
		case strings.Contains(req.Query, "repositories("):
			data = `{"user": {"repositories": {"totalCount": 1, "pageInfo": {"hasNextPage": false, "endCursor": "c1"},
				"nodes": [{"name": "hello", "isPrivate": false, "owner": {"login": "octocat"},
					"languages": {"nodes": [{"name": "Go"}]}, "defaultBranchRef": {"name": "main"}}]}}}`
		case strings.Contains(req.Query, "user(login:"):
			data = `{"user": {"id": "U_1"}}`
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data": %s}`, data)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, &historyCalls
}

// historyPage answers "last: L, before: <head> N" with the commits at offsets [N-L, N).
func historyPage(query string) string {
	m := historyArgs.FindStringSubmatch(query)
	if m == nil {
		return `{"repository": {"ref": null}}`
	}
	limit, _ := strconv.Atoi(m[1])
	head := m[2]
	remaining, _ := strconv.Atoi(m[3])
	start := max(0, remaining-limit)

	nodes := make([]string, 0, remaining-start)
	for i := start; i < remaining; i++ {
		date := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
		nodes = append(nodes, fmt.Sprintf(`{"oid": "c%d", "additions": 2, "deletions": 1, "changedFiles": 1,
			"committedDate": %q, "committer": {"user": {"id": "U_1"}}}`, i, date.Format(time.RFC3339)))
	}
	return fmt.Sprintf(`{"repository": {"ref": {"target": {"history": {"totalCount": %d,
		"pageInfo": {"hasPreviousPage": %t, "startCursor": "%s %d"}, "nodes": [%s]}}}}}`,
		remaining, start > 0, head, start, strings.Join(nodes, ","))
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		LogLevel:        "debug",
		GithubToken:     "test-token",
		GithubAPIURL:    apiURL,
		GithubRateLimit: 6000,
		SyncInterval:    time.Hour,
		SyncConcurrency: 1,
		CheckpointEvery: 1000,
		StorageDriver:   config.DriverMemory,
		CacheSize:       16,
		HTTPAddr:        ":0",
	}
}
