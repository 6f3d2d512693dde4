package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is a mutex-guarded in-process Orders implementation.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*AutoOrder
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{orders: make(map[int64]*AutoOrder)}
}

func (m *Memory) Create(ctx context.Context, order *AutoOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	order.ID = m.nextID
	if order.State == "" {
		order.State = OrderPending
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	m.orders[order.ID] = clone(order)
	return nil
}

func clone(o *AutoOrder) *AutoOrder {
	cp := *o
	cp.Transactions = append([]string(nil), o.Transactions...)
	return &cp
}

func (m *Memory) Get(ctx context.Context, id int64) (*AutoOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return clone(o), nil
}

func (m *Memory) Pending(ctx context.Context) ([]*AutoOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*AutoOrder
	for _, o := range m.orders {
		if o.State == OrderPending {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Claim(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if o.State != OrderPending {
		return false, nil
	}
	o.State = OrderProcessing
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *Memory) Release(ctx context.Context, id int64) error {
	return m.transition(id, OrderProcessing, OrderPending, "", "")
}

func (m *Memory) Finish(ctx context.Context, id int64, state OrderState, signature, reason string) error {
	return m.transition(id, OrderProcessing, state, signature, reason)
}

func (m *Memory) UpdateThreshold(ctx context.Context, id int64, threshold string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if o.State != OrderPending {
		return fmt.Errorf("order %d is %s, threshold updates need pending", id, o.State)
	}
	o.Threshold = threshold
	o.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) AppendTransaction(ctx context.Context, id int64, signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	o.Transactions = append(o.Transactions, signature)
	o.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	delete(m.orders, id)
	return nil
}

func (m *Memory) transition(id int64, from, to OrderState, signature, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	if o.State != from {
		return fmt.Errorf("order %d is %s, expected %s", id, o.State, from)
	}
	o.State = to
	if signature != "" {
		o.Signature = signature
	}
	if reason != "" {
		o.FailReason = reason
	}
	o.UpdatedAt = time.Now()
	return nil
}
