package rgo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeR speaks the R side of the protocol: it reads ..rgo.eval command
// lines, fetches the expression from the data server and PUTs back a
// result. Assignments through ..rgo.decode are kept in a workspace so
// values can be read back by name.
type fakeR struct {
	t      *testing.T
	port   int
	in     *io.PipeReader
	canned map[string]result

	mu    sync.Mutex
	vars  map[string]*wireValue
	lines []string
}

var (
	evalLine  = regexp.MustCompile(`^\.\.rgo\.eval\("([^"]+)", "([^"]+)", "([^"]+)"\)$`)
	assignCmd = regexp.MustCompile("^`([^`]+)` <- \\.\\.rgo\\.decode\\(\"([^\"]+)\"\\)$")
)

const crashExpr = "..crash()"

func newFakeConn(t *testing.T, log *zap.Logger, canned map[string]result) (*Conn, *fakeR) {
	t.Helper()
	if log == nil {
		log = zap.NewNop()
	}
	srv, err := newServer(log)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	pr, pw := io.Pipe()
	f := &fakeR{
		t:      t,
		port:   srv.port,
		in:     pr,
		canned: canned,
		vars:   make(map[string]*wireValue),
	}
	c := newConn(connConfig{log: log}, pw, srv, func() error {
		return pr.CloseWithError(io.ErrClosedPipe)
	})
	go func() {
		c.exit(f.serve())
	}()
	t.Cleanup(func() { c.Close() })
	return c, f
}

func (f *fakeR) serve() error {
	sc := bufio.NewScanner(f.in)
	for sc.Scan() {
		line := sc.Text()
		f.mu.Lock()
		f.lines = append(f.lines, line)
		f.mu.Unlock()
		if line == "q()" {
			f.in.Close()
			return nil
		}
		m := evalLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		expr := string(f.get(m[1]))
		if expr == crashExpr {
			f.in.CloseWithError(io.ErrClosedPipe)
			return fmt.Errorf("signal: killed")
		}
		f.put(m[2], f.respond(expr, m[3]))
	}
	return sc.Err()
}

func (f *fakeR) respond(expr, mode string) result {
	if res, ok := f.canned[expr]; ok {
		return res
	}
	if m := assignCmd.FindStringSubmatch(expr); m != nil {
		var w wireValue
		if err := json.Unmarshal(f.get(m[2]), &w); err != nil {
			return result{Error: err.Error()}
		}
		f.mu.Lock()
		f.vars[m[1]] = &w
		f.mu.Unlock()
		return result{}
	}
	f.mu.Lock()
	w, ok := f.vars[strings.TrimSpace(expr)]
	f.mu.Unlock()
	if !ok {
		return result{Error: fmt.Sprintf("object '%s' not found", expr)}
	}
	switch mode {
	case "value":
		return result{Value: w}
	case "capture":
		return result{Output: []string{fmt.Sprintf("[1] %s", bytes.Join(rawValues(w), []byte(" ")))}}
	}
	return result{}
}

func rawValues(w *wireValue) [][]byte {
	out := make([][]byte, len(w.Values))
	for i, v := range w.Values {
		out[i] = v
	}
	return out
}

func (f *fakeR) url(key string) string {
	return fmt.Sprintf("http://127.0.0.1:%d/%s", f.port, key)
}

func (f *fakeR) get(key string) []byte {
	resp, err := http.Get(f.url(key))
	if err != nil {
		f.t.Errorf("fake R: GET %s: %v", key, err)
		return nil
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		f.t.Errorf("fake R: reading %s: %v", key, err)
	}
	return b
}

func (f *fakeR) put(key string, res result) {
	b, err := json.Marshal(res)
	if err != nil {
		f.t.Errorf("fake R: marshal result: %v", err)
		return
	}
	req, err := http.NewRequest(http.MethodPut, f.url(key), bytes.NewReader(b))
	if err != nil {
		f.t.Errorf("fake R: building request: %v", err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		f.t.Errorf("fake R: PUT %s: %v", key, err)
		return
	}
	resp.Body.Close()
}

func (f *fakeR) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// wire builds a wireValue from JSON, for canned results.
func wire(t *testing.T, payload string) *wireValue {
	t.Helper()
	var w wireValue
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		t.Fatalf("bad test payload %s: %v", payload, err)
	}
	return &w
}
