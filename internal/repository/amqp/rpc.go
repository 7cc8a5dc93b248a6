package amqp

import (
	"encoding/json"
	"sync"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
)

// reply is the outcome of one RPC call.
type reply struct {
	body []byte
	err  error
}

// pendingCalls maps correlation ids to the callers waiting for a reply.
type pendingCalls struct {
	mu    sync.Mutex
	calls map[string]chan reply
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{calls: make(map[string]chan reply)}
}

// add registers id and returns the channel its reply will arrive on.
func (p *pendingCalls) add(id string) <-chan reply {
	ch := make(chan reply, 1)
	p.mu.Lock()
	p.calls[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingCalls) remove(id string) {
	p.mu.Lock()
	delete(p.calls, id)
	p.mu.Unlock()
}

// resolve hands body to the caller waiting on id. Unknown ids are late or
// foreign replies and are reported as false.
func (p *pendingCalls) resolve(id string, body []byte) bool {
	p.mu.Lock()
	ch, ok := p.calls[id]
	delete(p.calls, id)
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- reply{body: body}
	return true
}

// failAll completes every outstanding call with err.
func (p *pendingCalls) failAll(err error) int {
	p.mu.Lock()
	calls := p.calls
	p.calls = make(map[string]chan reply)
	p.mu.Unlock()
	for _, ch := range calls {
		ch <- reply{err: err}
	}
	return len(calls)
}

func (p *pendingCalls) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// replyEnvelope mirrors the judge backend's HTTP response wrapper.
type replyEnvelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// decodeReply unwraps an RPC reply body into out.
func decodeReply(op string, body []byte, out any) error {
	var env replyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &domain.RemoteError{Op: op, Message: "malformed reply", Code: -1, Err: err}
	}
	if env.Code != 0 {
		return &domain.RemoteError{Op: op, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &domain.RemoteError{Op: op, Message: "malformed reply data", Code: -1, Err: err}
	}
	return nil
}
