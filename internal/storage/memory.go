package storage

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/newstrust/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Memory is an in-process Store used by tests and by STORE_DRIVER=memory.
// Every method is atomic on its own; RunInTx gives no isolation, so
// multi-step operations rely on the caller's compensating actions.
type Memory struct {
	mu       sync.RWMutex
	news     map[bson.ObjectID]*models.News
	comments map[bson.ObjectID]*models.Comment
	sources  map[bson.ObjectID]*models.Source
	authors  map[bson.ObjectID]models.Author
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		news:     make(map[bson.ObjectID]*models.News),
		comments: make(map[bson.ObjectID]*models.Comment),
		sources:  make(map[bson.ObjectID]*models.Source),
		authors:  make(map[bson.ObjectID]models.Author),
	}
}

// AddAuthor registers display fields for a user.
func (m *Memory) AddAuthor(a models.Author) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authors[a.ID] = a
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *Memory) Transactional() bool {
	return false
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}

func cloneNews(n *models.News) *models.News {
	c := *n
	c.Voters = append([]models.Voter{}, n.Voters...)
	return &c
}

func cloneComment(c *models.Comment) *models.Comment {
	cp := *c
	cp.Reactors = append([]models.Reactor{}, c.Reactors...)
	return &cp
}

func cloneSource(s *models.Source) *models.Source {
	c := *s
	return &c
}

func idLess(a, b bson.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func paginate[T any](items []T, page, limit int) []T {
	start := int(skip(page, limit))
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

// News

func (m *Memory) InsertNews(ctx context.Context, n *models.News) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID.IsZero() {
		n.ID = bson.NewObjectID()
	}
	if _, exists := m.news[n.ID]; exists {
		return ErrDuplicate
	}
	m.news[n.ID] = cloneNews(n)
	return nil
}

func (m *Memory) FindNews(ctx context.Context, id bson.ObjectID) (*models.News, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.news[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneNews(n), nil
}

func newsSortKey(field string) func(a, b *models.News) int {
	switch field {
	case "title":
		return func(a, b *models.News) int { return strings.Compare(a.Title, b.Title) }
	case "createdAt":
		return func(a, b *models.News) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case "credibilityScore":
		return func(a, b *models.News) int { return a.CredibilityScore - b.CredibilityScore }
	case "upvotes":
		return func(a, b *models.News) int { return a.Upvotes - b.Upvotes }
	case "downvotes":
		return func(a, b *models.News) int { return a.Downvotes - b.Downvotes }
	case "commentsCount":
		return func(a, b *models.News) int { return a.CommentsCount - b.CommentsCount }
	}
	return func(a, b *models.News) int { return a.PublishDate.Compare(b.PublishDate) }
}

func (m *Memory) ListNews(ctx context.Context, f NewsFilter) ([]models.News, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.News
	for _, n := range m.news {
		if f.Category != "" && n.Category != f.Category {
			continue
		}
		if f.Source != "" && n.Source != f.Source {
			continue
		}
		if f.Search != "" && !containsFold(n.Title, f.Search) && !containsFold(n.Summary, f.Search) {
			continue
		}
		matched = append(matched, n)
	}

	cmp := newsSortKey(f.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		c := cmp(matched[i], matched[j])
		if c == 0 {
			return idLess(matched[j].ID, matched[i].ID)
		}
		if f.Desc {
			return c > 0
		}
		return c < 0
	})

	page := paginate(matched, f.Page, f.Limit)
	out := make([]models.News, 0, len(page))
	for _, n := range page {
		out = append(out, *cloneNews(n))
	}
	return out, int64(len(matched)), nil
}

func (m *Memory) UpdateNewsFields(ctx context.Context, n *models.News, prevSource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.news[n.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Source != prevSource {
		return ErrStale
	}
	cur.Title = n.Title
	cur.Summary = n.Summary
	cur.Content = n.Content
	cur.Source = n.Source
	cur.SourceURL = n.SourceURL
	cur.Category = n.Category
	cur.Image = n.Image
	cur.PublishDate = n.PublishDate
	cur.CredibilityScore = n.CredibilityScore
	cur.CredibilityLevel = n.CredibilityLevel
	cur.FactChecked = n.FactChecked
	cur.FactCheckerID = n.FactCheckerID
	cur.FactCheckDate = n.FactCheckDate
	cur.UpdatedAt = n.UpdatedAt
	return nil
}

func (m *Memory) RenameNewsSource(ctx context.Context, from, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var moved int64
	for _, n := range m.news {
		if n.Source == from {
			n.Source = to
			moved++
		}
	}
	return moved, nil
}

func (m *Memory) DeleteNews(ctx context.Context, id bson.ObjectID) (*models.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.news[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.news, id)
	return n, nil
}

func (m *Memory) AddCommentsCount(ctx context.Context, id bson.ObjectID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.news[id]
	if !ok {
		return ErrNotFound
	}
	n.CommentsCount = max(0, n.CommentsCount+delta)
	return nil
}

func (m *Memory) ApplyVote(ctx context.Context, id bson.ObjectID, ch models.LedgerChange) (*models.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.news[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cloneNews(n)
	if !next.ApplyVote(ch) {
		return nil, ErrStale
	}
	m.news[id] = next
	return cloneNews(next), nil
}

// Comments

func (m *Memory) InsertComment(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	if _, exists := m.comments[c.ID]; exists {
		return ErrDuplicate
	}
	m.comments[c.ID] = cloneComment(c)
	return nil
}

func (m *Memory) FindComment(ctx context.Context, id bson.ObjectID) (*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComment(c), nil
}

func (m *Memory) ListComments(ctx context.Context, newsID bson.ObjectID, page, limit int) ([]models.Comment, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*models.Comment
	for _, c := range m.comments {
		if c.NewsID == newsID {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return idLess(matched[j].ID, matched[i].ID)
	})

	pageItems := paginate(matched, page, limit)
	out := make([]models.Comment, 0, len(pageItems))
	for _, c := range pageItems {
		out = append(out, *cloneComment(c))
	}
	return out, int64(len(matched)), nil
}

func (m *Memory) UpdateCommentContent(ctx context.Context, id bson.ObjectID, content string, at time.Time) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = at
	return cloneComment(c), nil
}

func (m *Memory) DeleteCommentThread(ctx context.Context, id bson.ObjectID) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	removed := []models.Comment{*root}
	delete(m.comments, id)

	for cid, c := range m.comments {
		if c.ParentID != nil && *c.ParentID == id {
			removed = append(removed, *c)
			delete(m.comments, cid)
		}
	}
	return removed, nil
}

func (m *Memory) DeleteCommentsByNews(ctx context.Context, newsID bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, c := range m.comments {
		if c.NewsID == newsID {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) ApplyReaction(ctx context.Context, id bson.ObjectID, ch models.LedgerChange) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cloneComment(c)
	if !next.ApplyReaction(ch) {
		return nil, ErrStale
	}
	m.comments[id] = next
	return cloneComment(next), nil
}

func (m *Memory) MarkReported(ctx context.Context, id bson.ObjectID, reason string, at time.Time) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Reported = true
	c.ReportReason = reason
	c.UpdatedAt = at
	return cloneComment(c), nil
}

// Sources

func (m *Memory) sourceByName(name string) *models.Source {
	for _, s := range m.sources {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (m *Memory) InsertSource(ctx context.Context, s *models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sourceByName(s.Name) != nil {
		return ErrDuplicate
	}
	if s.ID.IsZero() {
		s.ID = bson.NewObjectID()
	}
	m.sources[s.ID] = cloneSource(s)
	return nil
}

func (m *Memory) FindSource(ctx context.Context, id bson.ObjectID) (*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSource(s), nil
}

func (m *Memory) FindSourceByName(ctx context.Context, name string) (*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.sourceByName(name)
	if s == nil {
		return nil, ErrNotFound
	}
	return cloneSource(s), nil
}

func sourceSortKey(field string) func(a, b *models.Source) int {
	switch field {
	case "credibilityScore":
		return func(a, b *models.Source) int { return a.CredibilityScore - b.CredibilityScore }
	case "newsCount":
		return func(a, b *models.Source) int { return a.NewsCount - b.NewsCount }
	case "createdAt":
		return func(a, b *models.Source) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
	return func(a, b *models.Source) int { return strings.Compare(a.Name, b.Name) }
}

func (m *Memory) sortedSources(keep func(*models.Source) bool, field string, desc bool) []*models.Source {
	var matched []*models.Source
	for _, s := range m.sources {
		if keep(s) {
			matched = append(matched, s)
		}
	}
	cmp := sourceSortKey(field)
	sort.SliceStable(matched, func(i, j int) bool {
		c := cmp(matched[i], matched[j])
		if c == 0 {
			return idLess(matched[i].ID, matched[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return matched
}

func (m *Memory) ListSources(ctx context.Context, f SourceFilter) ([]models.Source, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.sortedSources(func(s *models.Source) bool {
		return f.Search == "" || containsFold(s.Name, f.Search)
	}, f.SortBy, f.Desc)

	page := paginate(matched, f.Page, f.Limit)
	out := make([]models.Source, 0, len(page))
	for _, s := range page {
		out = append(out, *s)
	}
	return out, int64(len(matched)), nil
}

func (m *Memory) TopSources(ctx context.Context, limit int) ([]models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.sortedSources(func(s *models.Source) bool { return s.Verified }, "credibilityScore", true)
	page := paginate(matched, 1, limit)
	out := make([]models.Source, 0, len(page))
	for _, s := range page {
		out = append(out, *s)
	}
	return out, nil
}

func (m *Memory) UpdateSourceFields(ctx context.Context, s *models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sources[s.ID]
	if !ok {
		return ErrNotFound
	}
	if other := m.sourceByName(s.Name); other != nil && other.ID != s.ID {
		return ErrDuplicate
	}
	count := cur.NewsCount
	*cur = *cloneSource(s)
	cur.NewsCount = count
	return nil
}

func (m *Memory) DeleteSource(ctx context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sources[id]
	if !ok {
		return ErrNotFound
	}
	if s.NewsCount > 0 {
		return ErrInUse
	}
	delete(m.sources, id)
	return nil
}

func (m *Memory) IncSourceNewsCount(ctx context.Context, name string, seed *models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.sourceByName(name); s != nil {
		s.NewsCount++
		return nil
	}
	s := cloneSource(seed)
	s.ID = bson.NewObjectID()
	s.Name = name
	s.NewsCount = 1
	m.sources[s.ID] = s
	return nil
}

func (m *Memory) DecSourceNewsCount(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.sourceByName(name); s != nil {
		s.NewsCount = max(0, s.NewsCount-1)
	}
	return nil
}

// Users

func (m *Memory) FindAuthors(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]models.Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[bson.ObjectID]models.Author, len(ids))
	for _, id := range ids {
		if a, ok := m.authors[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// Reconciliation

func (m *Memory) RecountComments(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := make(map[bson.ObjectID]int)
	for _, c := range m.comments {
		live[c.NewsID]++
	}

	fixed := 0
	for id, n := range m.news {
		if n.CommentsCount != live[id] {
			n.CommentsCount = live[id]
			fixed++
		}
	}
	return fixed, nil
}

func (m *Memory) RecountSourceNews(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int)
	for _, n := range m.news {
		counts[n.Source]++
	}

	fixed := 0
	for _, s := range m.sources {
		if s.NewsCount != counts[s.Name] {
			s.NewsCount = counts[s.Name]
			fixed++
		}
		delete(counts, s.Name)
	}
	now := time.Now().UTC()
	for name, n := range counts {
		s := models.NewSource(name, now)
		s.ID = bson.NewObjectID()
		s.NewsCount = n
		m.sources[s.ID] = s
		fixed++
	}
	return fixed, nil
}
