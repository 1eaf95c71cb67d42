package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/ternarybob/renovo/internal/models"
)

// ErrNoMessage is returned when no job is currently visible in the queue.
var ErrNoMessage = errors.New("no messages in queue")

// queueMessage is the internal envelope stored in Badger. Body carries the
// JSON-encoded scrape job; keeping it opaque means claiming and dropping
// messages never needs to decode the payload.
type queueMessage struct {
	ID           string          `json:"id"`
	Body         json.RawMessage `json:"body"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	VisibleAt    time.Time       `json:"visible_at"`
	ReceiveCount int             `json:"receive_count"`
}

// Manager implements a durable at-least-once scrape queue over BadgerDB.
//
// Layout: message data lives at queue:{name}:msg:{id}; a visibility index
// at queue:{name}:index:{visibleAt}:{id} keeps ready messages cheap to find
// in timestamp order. Claiming a message bumps its receive count and pushes
// the index entry forward by the visibility timeout, so a crashed worker's
// message becomes visible again on its own.
type Manager struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
}

// NewManager creates a Badger-backed queue manager.
func NewManager(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxReceive int) (*Manager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &Manager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
	}, nil
}

// Enqueue adds a scrape job to the queue. It fails only on store errors;
// there is no dedup — overlapping jobs for the same entity are expected and
// resolved by the idempotent merge at reconciliation time.
func (m *Manager) Enqueue(ctx context.Context, job *models.ScrapeJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	id := uuid.New().String()
	body, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode scrape job: %w", err)
	}
	qMsg := queueMessage{
		ID:           id,
		Body:         body,
		EnqueuedAt:   time.Now(),
		VisibleAt:    time.Now(), // Immediately visible
		ReceiveCount: 0,
	}

	data, err := json.Marshal(qMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(m.msgKey(id), data); err != nil {
			return err
		}
		return txn.Set(m.indexKey(qMsg.VisibleAt, id), []byte{})
	})
}

// Receive claims the next visible job. It returns the job and a delete
// function the worker calls once the job is handled; an unclaimed delete
// means the message reappears after the visibility timeout.
func (m *Manager) Receive(ctx context.Context) (*models.ScrapeJob, func() error, error) {
	var qMsg queueMessage
	var msgID string
	var oldIndexKey []byte
	found := false

	err := m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			ts, id, err := m.parseIndexKey(key)
			if err != nil {
				continue // Skip invalid keys
			}

			if ts.After(now) {
				// Index keys are sorted by timestamp; nothing further is
				// visible yet.
				break
			}

			itemMsg, err := txn.Get(m.msgKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Orphaned index entry, clean up and keep looking
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			if err := itemMsg.Value(func(val []byte) error {
				return json.Unmarshal(val, &qMsg)
			}); err != nil {
				return err
			}

			if qMsg.ReceiveCount >= m.maxReceive {
				// Poison pill: drop it rather than loop forever
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(m.msgKey(id)); err != nil {
					return err
				}
				continue
			}

			found = true
			msgID = id
			oldIndexKey = key
			break
		}

		if !found {
			// Returning an error here would roll back the poison-pill and
			// orphan deletions above; commit them and report empty outside.
			return nil
		}

		// Claim: bump receive count, push visibility forward
		qMsg.ReceiveCount++
		qMsg.VisibleAt = time.Now().Add(m.visibilityTimeout)

		newData, err := json.Marshal(qMsg)
		if err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(msgID), newData); err != nil {
			return err
		}

		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(m.indexKey(qMsg.VisibleAt, msgID), []byte{})
	})

	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrNoMessage
	}

	job, err := models.ScrapeJobFromJSON(qMsg.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode claimed message %s: %w", msgID, err)
	}

	deleteFn := func() error {
		return m.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(m.msgKey(msgID))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					return nil // Already deleted
				}
				return err
			}

			var currentMsg queueMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &currentMsg)
			}); err != nil {
				return err
			}

			if err := txn.Delete(m.indexKey(currentMsg.VisibleAt, msgID)); err != nil {
				if err != badger.ErrKeyNotFound {
					return err
				}
			}
			return txn.Delete(m.msgKey(msgID))
		})
	}

	return job, deleteFn, nil
}

// Len returns the number of messages currently in the queue, visible or not.
func (m *Manager) Len(ctx context.Context) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the queue manager. The Badger handle is owned by the caller.
func (m *Manager) Close() error {
	return nil
}

func (m *Manager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *Manager) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so lexicographic order matches numeric order
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, visibleAt.UnixNano(), id))
}

func (m *Manager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefixStr := fmt.Sprintf("queue:%s:index:", m.queueName)
	if len(key) <= len(prefixStr) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	suffix := string(key[len(prefixStr):])
	if len(suffix) < 21 { // 20 digits + 1 colon
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	tsStr := suffix[:20]
	id := suffix[21:]

	var ts int64
	if _, err := fmt.Sscanf(tsStr, "%d", &ts); err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), id, nil
}
