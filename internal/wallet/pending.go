// ABOUTME: Pending-work queues: unapproved transactions and sign requests
// ABOUTME: Every add or resolve publishes the matching count topic

package wallet

import (
	"time"

	"github.com/google/uuid"

	"github.com/keyfold/walletd/internal/notify"
)

// PendingTx is an unapproved transaction awaiting user review.
type PendingTx struct {
	ID        string         `json:"id"`
	Origin    string         `json:"origin"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Value     string         `json:"value"`
	Data      string         `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// SignKind distinguishes the three sign-request queues.
type SignKind string

const (
	SignOpaque   SignKind = "message"
	SignPersonal SignKind = "personal"
	SignTyped    SignKind = "typed"
)

// SignRequest is an unapproved signing request awaiting user review.
type SignRequest struct {
	ID        string    `json:"id"`
	Kind      SignKind  `json:"kind"`
	Origin    string    `json:"origin"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddTransaction queues an unapproved transaction and requests attention.
// origin is empty for transactions initiated from the trusted UI.
func (c *Controller) AddTransaction(origin string, tx PendingTx) string {
	tx.ID = uuid.New().String()
	tx.Origin = origin
	tx.CreatedAt = time.Now().UTC()

	c.mu.Lock()
	c.pendingTxs[tx.ID] = &tx
	count := len(c.pendingTxs)
	c.mu.Unlock()

	c.logger.Info("transaction queued", "tx_id", tx.ID, "origin", origin)
	c.broadcaster.Publish(notify.Event{Topic: notify.TopicTxCount, Count: count})
	c.attention(c.opts.OnUnapprovedTx)
	return tx.ID
}

// AddSignRequest queues an unapproved sign request and requests attention.
func (c *Controller) AddSignRequest(origin string, kind SignKind, payload string) string {
	req := &SignRequest{
		ID:        uuid.New().String(),
		Kind:      kind,
		Origin:    origin,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	queue := c.queueFor(kind)
	queue[req.ID] = req
	count := len(queue)
	c.mu.Unlock()

	c.logger.Info("sign request queued", "request_id", req.ID, "kind", kind, "origin", origin)
	c.broadcaster.Publish(notify.Event{Topic: topicFor(kind), Count: count})
	c.attention(c.opts.OnUnconfirmedMessage)
	return req.ID
}

// ResolveTransaction removes a pending transaction, approved or not.
// Approval appends the transaction to the state's transactions list.
func (c *Controller) ResolveTransaction(id string, approved bool) error {
	if approved && c.Locked() {
		return ErrLocked
	}

	c.mu.Lock()
	tx, ok := c.pendingTxs[id]
	if !ok {
		c.mu.Unlock()
		return ErrPendingNotFound
	}
	delete(c.pendingTxs, id)
	count := len(c.pendingTxs)

	var snapshot map[string]any
	if approved {
		list, _ := c.state["transactions"].([]any)
		c.state["transactions"] = append(list, tx)
		snapshot = c.snapshotLocked()
	}
	c.mu.Unlock()

	c.logger.Info("transaction resolved", "tx_id", id, "approved", approved)
	c.broadcaster.Publish(notify.Event{Topic: notify.TopicTxCount, Count: count})
	if snapshot != nil {
		c.publishState(snapshot)
	}
	return nil
}

// ResolveSignRequest removes a pending sign request.
func (c *Controller) ResolveSignRequest(id string, kind SignKind, approved bool) error {
	if approved && c.Locked() {
		return ErrLocked
	}

	c.mu.Lock()
	queue := c.queueFor(kind)
	if _, ok := queue[id]; !ok {
		c.mu.Unlock()
		return ErrPendingNotFound
	}
	delete(queue, id)
	count := len(queue)
	c.mu.Unlock()

	c.logger.Info("sign request resolved", "request_id", id, "kind", kind, "approved", approved)
	c.broadcaster.Publish(notify.Event{Topic: topicFor(kind), Count: count})
	return nil
}

// PendingTransactions returns the queued transactions.
func (c *Controller) PendingTransactions() []*PendingTx {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*PendingTx, 0, len(c.pendingTxs))
	for _, tx := range c.pendingTxs {
		out = append(out, tx)
	}
	return out
}

// PendingSignRequests returns the queued sign requests of one kind.
func (c *Controller) PendingSignRequests(kind SignKind) []*SignRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	queue := c.queueFor(kind)
	out := make([]*SignRequest, 0, len(queue))
	for _, req := range queue {
		out = append(out, req)
	}
	return out
}

// queueFor returns the sign-request queue for a kind. Callers must hold
// the lock.
func (c *Controller) queueFor(kind SignKind) map[string]*SignRequest {
	switch kind {
	case SignPersonal:
		return c.pendingPersonal
	case SignTyped:
		return c.pendingTyped
	default:
		return c.pendingMsgs
	}
}

func topicFor(kind SignKind) string {
	switch kind {
	case SignPersonal:
		return notify.TopicPersonalCount
	case SignTyped:
		return notify.TopicTypedCount
	default:
		return notify.TopicMsgCount
	}
}
