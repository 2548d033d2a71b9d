package tui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/fangio/fangio/internal/schema"
)

// FollowSSE subscribes to a running server's event stream for planID and
// forwards decoded events. The returned channel closes when the server ends
// the stream or ctx is canceled.
func FollowSSE(ctx context.Context, baseURL, planID string) (<-chan schema.AuditEvent, error) {
	url := fmt.Sprintf("%s/api/events?planId=%s", strings.TrimSuffix(baseURL, "/"), planID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream: %s", resp.Status)
	}

	out := make(chan schema.AuditEvent)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue // blank separators and keepalive comments
			}
			var evt schema.AuditEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// WatchRun emits the events of a persisted run. If the run file does not
// exist yet it watches the runs directory with fsnotify until it appears,
// so a watch started before execution still renders the run when it lands.
// The channel closes after the full run has been delivered.
func WatchRun(ctx context.Context, dataDir, planID string) (<-chan schema.AuditEvent, error) {
	runsDir := filepath.Join(dataDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("create runs dir: %w", err)
	}
	runPath := filepath.Join(runsDir, planID+".json")

	out := make(chan schema.AuditEvent)
	go func() {
		defer close(out)

		if !waitForRunFile(ctx, runsDir, runPath) {
			return
		}

		data, err := os.ReadFile(runPath)
		if err != nil {
			return
		}
		events, err := schema.ValidateRun(data)
		if err != nil {
			return
		}
		for _, evt := range events {
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// waitForRunFile reports whether the run file exists, blocking on fsnotify
// until it is created when it does not.
func waitForRunFile(ctx context.Context, runsDir, runPath string) bool {
	if _, err := os.Stat(runPath); err == nil {
		return true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}
	defer watcher.Close()
	if err := watcher.Add(runsDir); err != nil {
		return false
	}

	// The file may have landed between the stat and the watch registration.
	if _, err := os.Stat(runPath); err == nil {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case evt, ok := <-watcher.Events:
			if !ok {
				return false
			}
			// Persistence writes a temp file and renames it into place.
			if evt.Name == runPath && evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				return true
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return false
			}
		}
	}
}
