package rgo

import (
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/httpdown"
	"go.uber.org/zap"
)

// server is the data channel between a Conn and its R process. R fetches
// expressions and assigned values with GET and delivers results with PUT.
// It only listens on the loopback interface.
type server struct {
	s    httpdown.Server
	port int
	log  *zap.Logger
	quit chan struct{}

	mu   sync.Mutex
	data map[string][]byte

	fmu sync.Mutex
	fwd map[string]chan<- readerDone
}

type readerDone struct {
	r    io.Reader
	done chan<- struct{}
}

func (s *server) putData(key string, val []byte) {
	defer s.mu.Unlock()
	s.mu.Lock()
	s.data[key] = val
}

func (s *server) rmData(key string) {
	defer s.mu.Unlock()
	s.mu.Lock()
	delete(s.data, key)
}

func (s *server) putFwd(key string, c chan<- readerDone) {
	defer s.fmu.Unlock()
	s.fmu.Lock()
	s.fwd[key] = c
}

func (s *server) rmFwd(key string) {
	defer s.fmu.Unlock()
	s.fmu.Lock()
	delete(s.fwd, key)
}

func (s *server) httpHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimLeft(r.URL.Path, "/")
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		data, ok := s.data[path]
		s.mu.Unlock()
		if !ok {
			s.log.Debug("no data for key", zap.String("key", path))
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		w.Write(data)
	case http.MethodPut:
		defer r.Body.Close()
		s.fmu.Lock()
		c, ok := s.fwd[path]
		s.fmu.Unlock()
		if !ok {
			s.log.Warn("result for unknown key", zap.String("key", path))
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
		done := make(chan struct{})
		select {
		case c <- readerDone{r.Body, done}:
		case <-s.quit:
			http.Error(w, "", http.StatusServiceUnavailable)
			return
		}
		select {
		case <-done:
		case <-s.quit:
		}
	default:
		http.Error(w, "", http.StatusMethodNotAllowed)
	}
}

func (s *server) stop() error {
	select {
	case <-s.quit:
		return nil
	default:
	}
	close(s.quit)
	return s.s.Stop()
}

func newServer(log *zap.Logger) (*server, error) {
	s := &server{
		log:  log,
		quit: make(chan struct{}),
		data: make(map[string][]byte),
		fwd:  make(map[string]chan<- readerDone),
	}
	hs := &http.Server{
		Handler:           http.HandlerFunc(s.httpHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	h := httpdown.HTTP{StopTimeout: 5 * time.Second, KillTimeout: time.Second}
	s.s = h.Serve(hs, ln)
	s.port = ln.Addr().(*net.TCPAddr).Port
	log.Debug("data server listening", zap.Int("port", s.port))
	return s, nil
}
