package correlation

import (
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
)

const correlationTestPrefix = "correlation:correlation_test"

var v7Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestUUIDGenerator_Format(t *testing.T) {
	token := NewUUIDGenerator().Generate()

	id, err := uuid.Parse(token)
	if err != nil {
		t.Fatalf("%s - token %q is not a UUID: %v", correlationTestPrefix, token, err)
	}
	if id.Version() != 7 {
		t.Errorf("%s - version = %d, want 7", correlationTestPrefix, id.Version())
	}
	if !v7Pattern.MatchString(token) {
		t.Errorf("%s - token %q is not in canonical lower-case form", correlationTestPrefix, token)
	}
}

func TestUUIDGenerator_UniqueAcrossGoroutines(t *testing.T) {
	gen := NewUUIDGenerator()
	const workers, perWorker = 8, 500

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for k := 0; k < perWorker; k++ {
				local = append(local, gen.Generate())
			}
			mu.Lock()
			for _, tok := range local {
				seen[tok] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("%s - %d distinct tokens, want %d", correlationTestPrefix, len(seen), workers*perWorker)
	}
}

func TestSequence(t *testing.T) {
	s := &Sequence{Prefix: "tx"}
	for _, want := range []string{"tx-1", "tx-2"} {
		if got := s.Generate(); got != want {
			t.Errorf("%s - Generate() = %s, want %s", correlationTestPrefix, got, want)
		}
	}
}
