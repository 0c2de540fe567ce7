package supervisor

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// tailBuffer keeps the last max bytes written to it and logs every complete
// line at debug level.
type tailBuffer struct {
	mu      sync.Mutex
	max     int
	buf     []byte
	partial []byte
	log     zerolog.Logger
	stream  string
}

func newTailBuffer(max int, log zerolog.Logger, stream string) *tailBuffer {
	return &tailBuffer{max: max, log: log, stream: stream}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}

	t.partial = append(t.partial, p...)
	for {
		i := bytes.IndexByte(t.partial, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(t.partial[:i], "\r")
		if len(line) > 0 {
			t.log.Debug().Str("stream", t.stream).Msg(string(line))
		}
		t.partial = t.partial[i+1:]
	}
	if len(t.partial) > t.max {
		t.partial = t.partial[len(t.partial)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
