package firestore

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
)

// txState accumulates writes staged by repositories while a unit of work is
// open. Reads always go straight to the client; staged writes are applied
// atomically in a single Firestore transaction when the unit of work commits.
type txState struct {
	mu  sync.Mutex
	ops []func(tx *firestore.Transaction) error
}

func (s *txState) stage(op func(tx *firestore.Transaction) error) {
	if s == nil || op == nil {
		return
	}
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
}

func (s *txState) apply(tx *firestore.Transaction) error {
	s.mu.Lock()
	ops := s.ops
	s.mu.Unlock()
	for _, op := range ops {
		if err := op(tx); err != nil {
			return err
		}
	}
	return nil
}

func (s *txState) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops) == 0
}

type txStateKey struct{}

func withTxState(ctx context.Context, state *txState) context.Context {
	return context.WithValue(ctx, txStateKey{}, state)
}

func txStateFrom(ctx context.Context) *txState {
	state, _ := ctx.Value(txStateKey{}).(*txState)
	return state
}

// setDoc writes the document immediately, or stages the write when a unit of
// work is open on the context.
func setDoc(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	if state := txStateFrom(ctx); state != nil {
		state.stage(func(tx *firestore.Transaction) error {
			return tx.Set(ref, data)
		})
		return nil
	}
	_, err := ref.Set(ctx, data)
	return err
}

// createDoc inserts the document, failing at write (or commit) time when it
// already exists.
func createDoc(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	if state := txStateFrom(ctx); state != nil {
		state.stage(func(tx *firestore.Transaction) error {
			return tx.Create(ref, data)
		})
		return nil
	}
	_, err := ref.Create(ctx, data)
	return err
}

func updateDoc(ctx context.Context, ref *firestore.DocumentRef, updates []firestore.Update, preconds ...firestore.Precondition) error {
	if state := txStateFrom(ctx); state != nil {
		state.stage(func(tx *firestore.Transaction) error {
			return tx.Update(ref, updates, preconds...)
		})
		return nil
	}
	_, err := ref.Update(ctx, updates, preconds...)
	return err
}

func deleteDoc(ctx context.Context, ref *firestore.DocumentRef) error {
	if state := txStateFrom(ctx); state != nil {
		state.stage(func(tx *firestore.Transaction) error {
			return tx.Delete(ref)
		})
		return nil
	}
	_, err := ref.Delete(ctx)
	return err
}
