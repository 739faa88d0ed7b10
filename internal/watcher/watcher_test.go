// # internal/watcher/watcher_test.go
package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 1)
	w, err := NewWatcher(100*time.Millisecond, []string{"**/node_modules/**", "*.skip.vue"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	// Create a component file
	testFile := filepath.Join(tmpDir, "App.vue")
	os.WriteFile(testFile, []byte("<template><div/></template>"), 0644)

	select {
	case paths := <-changedFiles:
		found := false
		for _, p := range paths {
			if p == testFile {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected to find %s in changed files %v", testFile, paths)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timed out waiting for file change event")
	}

	// Non-source and excluded files must not trigger events.
	os.WriteFile(filepath.Join(tmpDir, "readme.md"), []byte("# notes"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "Story.skip.vue"), []byte("<template/>"), 0644)

	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			base := filepath.Base(p)
			if base == "readme.md" || base == "Story.skip.vue" {
				t.Errorf("Filtered file %s triggered event", base)
			}
		}
	case <-time.After(500 * time.Millisecond):
		// Expected
	}

	// New directory should be recursively watched after create.
	subdir := filepath.Join(tmpDir, "components")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "Nested.vue")
	if err := os.WriteFile(subFile, []byte("<template><p/></template>"), 0644); err != nil {
		t.Fatal(err)
	}

	foundNested := false
	timeout := time.After(2 * time.Second)
	for !foundNested {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == subFile {
					foundNested = true
					break
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for nested file event in newly created directory")
		}
	}
}

func TestWatcher_ExcludedDirNotWatched(t *testing.T) {
	tmpDir := t.TempDir()
	modules := filepath.Join(tmpDir, "node_modules")
	if err := os.MkdirAll(modules, 0755); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 1)
	w, err := NewWatcher(50*time.Millisecond, []string{"**/node_modules/**"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	os.WriteFile(filepath.Join(modules, "Dep.vue"), []byte("<template/>"), 0644)

	select {
	case paths := <-changedFiles:
		t.Errorf("excluded directory produced events: %v", paths)
	case <-time.After(400 * time.Millisecond):
		// Expected
	}
}

func TestIsSource(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"src/App.vue", true},
		{"src/store.ts", true},
		{"src/legacy.MJS", true},
		{"src/view.tsx", true},
		{"src/styles.css", false},
		{"README.md", false},
		{"Makefile", false},
	}
	for _, tc := range cases {
		if got := IsSource(tc.path); got != tc.want {
			t.Errorf("IsSource(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
