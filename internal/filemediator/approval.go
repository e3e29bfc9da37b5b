package filemediator

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/core"
)

// ApprovalStore is a single JSON file of pending/resolved write-approval
// requests, updated via read-modify-write. Safe without locking across
// processes because only the supervisor ever writes, and only in direct
// response to engine events.
type ApprovalStore struct {
	mu      sync.Mutex
	path    string
	nextNum int
	entries map[string]*core.ApprovalRequest
}

// NewApprovalStore loads (or initializes) the approval store at path.
func NewApprovalStore(path string) (*ApprovalStore, error) {
	s := &ApprovalStore{path: path, entries: make(map[string]*core.ApprovalRequest)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ApprovalStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("filemediator: loading approvals: %w", err)
	}
	var list []*core.ApprovalRequest
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("filemediator: parsing approvals: %w", err)
	}
	for _, req := range list {
		s.entries[req.ID] = req
		if n := numericSuffix(req.ID); n >= s.nextNum {
			s.nextNum = n + 1
		}
	}
	return nil
}

func (s *ApprovalStore) persist() error {
	list := make([]*core.ApprovalRequest, 0, len(s.entries))
	for _, req := range s.entries {
		list = append(list, req)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("filemediator: marshaling approvals: %w", err)
	}
	return config.AtomicWrite(s.path, data)
}

// Request records a new pending approval, capturing content at request
// time so replay on resume does not depend on the agent re-sending it.
func (s *ApprovalStore) Request(agent, path string, content []byte) *core.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("approval-%d", s.nextNum)
	s.nextNum++
	req := &core.ApprovalRequest{
		ID:          id,
		Agent:       agent,
		Path:        path,
		Content:     string(content),
		ContentSize: len(content),
		Status:      core.ApprovalPending,
	}
	s.entries[id] = req
	_ = s.persist()
	return req
}

// Pending returns every approval still awaiting a decision.
func (s *ApprovalStore) Pending() []*core.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*core.ApprovalRequest
	for _, req := range s.entries {
		if req.Status == core.ApprovalPending {
			pending = append(pending, req)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending
}

// UninjectedDenials returns denied approvals whose outcome has not yet
// been surfaced back to the agent as a system message.
func (s *ApprovalStore) UninjectedDenials() []*core.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.ApprovalRequest
	for _, req := range s.entries {
		if req.Status == core.ApprovalDenied && !req.Injected {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnappliedApprovals returns approved writes that have not yet been
// replayed against a mediator, the case where the process died between
// approval and application.
func (s *ApprovalStore) UnappliedApprovals() []*core.ApprovalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.ApprovalRequest
	for _, req := range s.entries {
		if req.Status == core.ApprovalApproved && !req.Applied {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns one approval by id.
func (s *ApprovalStore) Get(id string) (*core.ApprovalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.entries[id]
	return req, ok
}

// Approve transitions an approval to approved.
func (s *ApprovalStore) Approve(id string) (*core.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.entries[id]
	if !ok {
		return nil, core.ErrNotFound("APPROVAL", id)
	}
	if err := req.Approve(); err != nil {
		return nil, err
	}
	return req, s.persist()
}

// Deny transitions an approval to denied with a reason.
func (s *ApprovalStore) Deny(id, reason string) (*core.ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.entries[id]
	if !ok {
		return nil, core.ErrNotFound("APPROVAL", id)
	}
	if err := req.Deny(reason); err != nil {
		return nil, err
	}
	return req, s.persist()
}

// MarkApplied records that an approved write has been replayed against the
// file mediator.
func (s *ApprovalStore) MarkApplied(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.entries[id]
	if !ok {
		return core.ErrNotFound("APPROVAL", id)
	}
	req.Applied = true
	return s.persist()
}

// MarkInjected records that a denied approval's outcome has been surfaced
// back to the agent as a system message.
func (s *ApprovalStore) MarkInjected(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.entries[id]
	if !ok {
		return core.ErrNotFound("APPROVAL", id)
	}
	req.Injected = true
	return s.persist()
}

func numericSuffix(id string) int {
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if start == end {
		return -1
	}
	n, err := strconv.Atoi(id[start:end])
	if err != nil {
		return -1
	}
	return n
}
