package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/servicetest"
)

// buildCodesim builds the codesim binary into a temp dir.
func buildCodesim(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e builds the binary; skipped in -short mode")
	}
	binPath := filepath.Join(t.TempDir(), "codesim")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// test/e2e -> module root
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/codesim")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

// seedService starts a fake analysis service with three Go files where
// 1 and 2 are near copies.
func seedService(t *testing.T) *servicetest.Service {
	t.Helper()
	svc := servicetest.New(t)
	svc.AddFile("fixture_one.go", model.Go)
	svc.AddFile("fixture_two.go", model.Go)
	svc.AddFile("fixture_three.go", model.Go)
	svc.SetScore(1, 2, 87.5)
	svc.SetScore(1, 3, 22)
	return svc
}

// codesimEnv points the binary at svc with a throwaway home directory.
func codesimEnv(homeDir string, svc *servicetest.Service) []string {
	return append(os.Environ(),
		"HOME="+homeDir,
		"CODESIM_SERVICE_URL="+svc.URL(),
		"CODESIM_LOG_LEVEL=debug",
	)
}

// Terminal queries termenv sends while detecting colours, with the replies
// a dark terminal would give. Each reply is followed by a cursor position
// report, which ends termenv's read.
var termQueries = map[string]string{
	"]11;?": "\x1b]11;rgb:0000/0000/0000\x1b\\\x1b[1;1R",
	"]10;?": "\x1b]10;rgb:ffff/ffff/ffff\x1b\\\x1b[1;1R",
}

// expectAnswering waits for want, answering terminal queries on the way.
// A pty has no terminal emulator behind it, so unanswered queries would
// each stall startup until termenv gives up.
func expectAnswering(c *expect.Console, want string, timeout time.Duration) error {
	patterns := []string{want}
	for q := range termQueries {
		patterns = append(patterns, q)
	}

	deadline := time.Now().Add(timeout)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return fmt.Errorf("timed out waiting for %q", want)
		}
		got, err := c.Expect(expect.String(patterns...), expect.WithTimeout(left))
		if err != nil {
			return err
		}
		if strings.HasSuffix(got, want) {
			return nil
		}
		for q, reply := range termQueries {
			if strings.HasSuffix(got, q) {
				if _, err := c.Send(reply); err != nil {
					return fmt.Errorf("answer %q: %w", q, err)
				}
			}
		}
	}
}
