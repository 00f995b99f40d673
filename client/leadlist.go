package client

import (
	"context"
	"sync"
	"time"

	"estateleads/leads"
)

// LeadLister fetches one page of leads; *Client implements it
type LeadLister interface {
	ListLeads(ctx context.Context, q LeadQuery) (*LeadPage, error)
}

// LeadList is the paginated lead view. It is refreshed by refetching,
// never patched in place from an edit session.
type LeadList struct {
	mu       sync.RWMutex
	lister   LeadLister
	query    LeadQuery
	leads    []Lead
	total    int64
	err      error
	loadedAt time.Time
}

func NewLeadList(lister LeadLister, q LeadQuery) *LeadList {
	return &LeadList{lister: lister, query: q}
}

// Reload refetches the current page. A failed reload keeps the previously
// loaded leads and records the error.
func (l *LeadList) Reload(ctx context.Context) error {
	l.mu.RLock()
	q := l.query
	l.mu.RUnlock()

	page, err := l.lister.ListLeads(ctx, q)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.err = err
		return err
	}
	l.leads = page.Leads
	l.total = page.Total
	l.err = nil
	l.loadedAt = time.Now()
	return nil
}

// AfterCommit reloads the list; pass it to WithAfterCommit
func (l *LeadList) AfterCommit(ctx context.Context, _ *leads.PatchResult) {
	_ = l.Reload(ctx)
}

func (l *LeadList) SetQuery(q LeadQuery) {
	l.mu.Lock()
	l.query = q
	l.mu.Unlock()
}

func (l *LeadList) Query() LeadQuery {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.query
}

func (l *LeadList) Leads() []Lead {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Lead{}, l.leads...)
}

func (l *LeadList) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Err is the error of the last reload, nil once a reload succeeds
func (l *LeadList) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

func (l *LeadList) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// Find returns the loaded lead with the given id
func (l *LeadList) Find(id uint) (Lead, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, lead := range l.leads {
		if lead.ID == id {
			return lead, true
		}
	}
	return Lead{}, false
}
