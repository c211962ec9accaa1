package testutil

import (
	"context"
	"sync"

	"github.com/tOgg1/matchchat/internal/models"
)

// PageKey addresses one history page.
type PageKey struct {
	Peer string
	Page int
}

// StubFetcher is an in-memory history.Fetcher. Pages are oldest-first, as the
// real client returns them. Missing pages are empty.
type StubFetcher struct {
	mu       sync.Mutex
	pages    map[PageKey][]models.Message
	errs     map[PageKey]error
	calls    []PageKey
	deleted  []string
	delErr   error
	peers    []models.Peer
	peersErr error
}

// NewStubFetcher returns an empty stub.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		pages: make(map[PageKey][]models.Message),
		errs:  make(map[PageKey]error),
	}
}

// SetPage stores a page result.
func (f *StubFetcher) SetPage(peer string, page int, msgs ...models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[PageKey{peer, page}] = msgs
	delete(f.errs, PageKey{peer, page})
}

// FailPage makes a page fetch return err.
func (f *StubFetcher) FailPage(peer string, page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[PageKey{peer, page}] = err
}

// FailDeletes makes DeleteMessage return err (nil restores).
func (f *StubFetcher) FailDeletes(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delErr = err
}

// SetPeers stores the connection list.
func (f *StubFetcher) SetPeers(peers ...models.Peer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peers = peers
	f.peersErr = nil
}

func (f *StubFetcher) FetchPage(ctx context.Context, peerID string, page int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := PageKey{peerID, page}
	f.calls = append(f.calls, key)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return append([]models.Message(nil), f.pages[key]...), nil
}

func (f *StubFetcher) DeleteMessage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *StubFetcher) Connections(context.Context) ([]models.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Peer(nil), f.peers...), f.peersErr
}

// Calls returns the page fetches made so far.
func (f *StubFetcher) Calls() []PageKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PageKey(nil), f.calls...)
}

// Deleted returns the ids passed to DeleteMessage.
func (f *StubFetcher) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
