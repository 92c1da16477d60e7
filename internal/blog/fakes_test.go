package blog

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"inkpress/internal/models"
	"inkpress/internal/store"
)

// memDB is an in-memory stand-in for PostgreSQL shared by the fake
// repositories. It mirrors the constraints the schema enforces.
type memDB struct {
	mu       sync.Mutex
	posts    map[uuid.UUID]models.Post
	cats     map[uuid.UUID]models.Category
	comments map[uuid.UUID]models.Comment
	clock    time.Time
	calls    map[string]int

	// fail, when set, is returned by every repository call.
	fail error
}

func newMemDB() *memDB {
	return &memDB{
		posts:    map[uuid.UUID]models.Post{},
		cats:     map[uuid.UUID]models.Category{},
		comments: map[uuid.UUID]models.Comment{},
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		calls:    map[string]int{},
	}
}

// enter locks the db and records the call. Callers must defer db.mu.Unlock.
func (db *memDB) enter(name string) error {
	db.mu.Lock()
	db.calls[name]++
	return db.fail
}

func (db *memDB) callCount(name string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calls[name]
}

func (db *memDB) now() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) withCategory(p models.Post) models.Post {
	p.Category = nil
	if p.CategoryID != nil {
		if c, ok := db.cats[*p.CategoryID]; ok {
			p.Category = &models.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug}
		}
	}
	return p
}

func (db *memDB) sortedPosts(keep func(models.Post) bool) []models.Post {
	out := []models.Post{}
	for _, p := range db.posts {
		p = db.withCategory(p)
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type memPosts struct{ db *memDB }

func (r memPosts) ListPublished(_ context.Context, limit, offset int, categorySlug string) ([]models.Post, error) {
	if err := r.db.enter("posts.ListPublished"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	all := r.db.sortedPosts(func(p models.Post) bool {
		if !p.Published {
			return false
		}
		return categorySlug == "" || (p.Category != nil && p.Category.Slug == categorySlug)
	})
	return window(all, limit, offset), nil
}

func (r memPosts) FindPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	p, err := r.FindBySlug(ctx, slug)
	if p != nil && !p.Published {
		return nil, nil
	}
	return p, err
}

func (r memPosts) Search(_ context.Context, q string) ([]models.Post, error) {
	if err := r.db.enter("posts.Search"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	q = strings.ToLower(q)
	return r.db.sortedPosts(func(p models.Post) bool {
		return p.Published && (strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q))
	}), nil
}

func (r memPosts) ListAll(_ context.Context, limit, offset int) ([]models.Post, error) {
	if err := r.db.enter("posts.ListAll"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	return window(r.db.sortedPosts(func(models.Post) bool { return true }), limit, offset), nil
}

func (r memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	if err := r.db.enter("posts.FindByID"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return nil, nil
	}
	p = r.db.withCategory(p)
	return &p, nil
}

func (r memPosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	if err := r.db.enter("posts.FindBySlug"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	for _, p := range r.db.posts {
		if p.Slug == slug {
			p = r.db.withCategory(p)
			return &p, nil
		}
	}
	return nil, nil
}

func (r memPosts) checkWrite(p *models.Post) error {
	for _, other := range r.db.posts {
		if other.Slug == p.Slug && other.ID != p.ID {
			return store.ErrDuplicate
		}
	}
	if p.CategoryID != nil {
		if _, ok := r.db.cats[*p.CategoryID]; !ok {
			return store.ErrInUse
		}
	}
	return nil
}

func (r memPosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	if err := r.db.enter("posts.Create"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	row := *p
	row.ID = uuid.New()
	if err := r.checkWrite(&row); err != nil {
		return nil, err
	}
	row.CreatedAt = r.db.now()
	row.UpdatedAt = row.CreatedAt
	r.db.posts[row.ID] = row
	row = r.db.withCategory(row)
	return &row, nil
}

func (r memPosts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	if err := r.db.enter("posts.Update"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	old, ok := r.db.posts[p.ID]
	if !ok {
		return nil, nil
	}
	if err := r.checkWrite(p); err != nil {
		return nil, err
	}
	row := *p
	row.CreatedAt = old.CreatedAt
	row.UpdatedAt = r.db.now()
	r.db.posts[row.ID] = row
	row = r.db.withCategory(row)
	return &row, nil
}

func (r memPosts) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if err := r.db.enter("posts.Delete"); err != nil {
		r.db.mu.Unlock()
		return false, err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[id]; !ok {
		return false, nil
	}
	delete(r.db.posts, id)
	for cid, c := range r.db.comments {
		if c.PostID == id {
			delete(r.db.comments, cid)
		}
	}
	return true, nil
}

func (r memPosts) Count(_ context.Context, publishedOnly bool) (int, error) {
	if err := r.db.enter("posts.Count"); err != nil {
		r.db.mu.Unlock()
		return 0, err
	}
	defer r.db.mu.Unlock()
	n := 0
	for _, p := range r.db.posts {
		if !publishedOnly || p.Published {
			n++
		}
	}
	return n, nil
}

type memCategories struct{ db *memDB }

func (r memCategories) postCount(id uuid.UUID) int {
	n := 0
	for _, p := range r.db.posts {
		if p.CategoryID != nil && *p.CategoryID == id {
			n++
		}
	}
	return n
}

func (r memCategories) List(_ context.Context) ([]models.Category, error) {
	if err := r.db.enter("categories.List"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	out := []models.Category{}
	for _, c := range r.db.cats {
		c.PostCount = r.postCount(c.ID)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCategories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	if err := r.db.enter("categories.FindBySlug"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	for _, c := range r.db.cats {
		if c.Slug == slug {
			c.PostCount = r.postCount(c.ID)
			return &c, nil
		}
	}
	return nil, nil
}

func (r memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if err := r.db.enter("categories.FindByID"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	c, ok := r.db.cats[id]
	if !ok {
		return nil, nil
	}
	c.PostCount = r.postCount(id)
	return &c, nil
}

func (r memCategories) slugTaken(c *models.Category) bool {
	for _, other := range r.db.cats {
		if other.Slug == c.Slug && other.ID != c.ID {
			return true
		}
	}
	return false
}

func (r memCategories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	if err := r.db.enter("categories.Create"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	row := *c
	row.ID = uuid.New()
	if r.slugTaken(&row) {
		return nil, store.ErrDuplicate
	}
	row.CreatedAt = r.db.now()
	r.db.cats[row.ID] = row
	return &row, nil
}

func (r memCategories) Update(_ context.Context, c *models.Category) (*models.Category, error) {
	if err := r.db.enter("categories.Update"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	old, ok := r.db.cats[c.ID]
	if !ok {
		return nil, nil
	}
	if r.slugTaken(c) {
		return nil, store.ErrDuplicate
	}
	row := *c
	row.CreatedAt = old.CreatedAt
	r.db.cats[row.ID] = row
	return &row, nil
}

func (r memCategories) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if err := r.db.enter("categories.Delete"); err != nil {
		r.db.mu.Unlock()
		return false, err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.cats[id]; !ok {
		return false, nil
	}
	if r.postCount(id) > 0 {
		return false, store.ErrInUse
	}
	delete(r.db.cats, id)
	return true, nil
}

func (r memCategories) Count(_ context.Context) (int, error) {
	if err := r.db.enter("categories.Count"); err != nil {
		r.db.mu.Unlock()
		return 0, err
	}
	defer r.db.mu.Unlock()
	return len(r.db.cats), nil
}

func (r memCategories) PostCount(_ context.Context, id uuid.UUID) (int, error) {
	if err := r.db.enter("categories.PostCount"); err != nil {
		r.db.mu.Unlock()
		return 0, err
	}
	defer r.db.mu.Unlock()
	return r.postCount(id), nil
}

type memComments struct{ db *memDB }

func (r memComments) sorted(keep func(models.Comment) bool) []models.Comment {
	out := []models.Comment{}
	for _, c := range r.db.comments {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

func (r memComments) ListApproved(_ context.Context, postID uuid.UUID) ([]models.Comment, error) {
	if err := r.db.enter("comments.ListApproved"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	return r.sorted(func(c models.Comment) bool {
		return c.PostID == postID && c.Status == models.CommentApproved
	}), nil
}

func (r memComments) List(_ context.Context, status models.CommentStatus, limit, offset int) ([]models.Comment, error) {
	if err := r.db.enter("comments.List"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	all := r.sorted(func(c models.Comment) bool { return status == "" || c.Status == status })
	page := window(all, limit, offset)
	for i := range page {
		p := r.db.posts[page[i].PostID]
		page[i].Post = &models.PostSummary{ID: p.ID, Title: p.Title, Slug: p.Slug}
	}
	return page, nil
}

func (r memComments) FindByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	if err := r.db.enter("comments.FindByID"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r memComments) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	if err := r.db.enter("comments.Create"); err != nil {
		r.db.mu.Unlock()
		return nil, err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[c.PostID]; !ok {
		return nil, store.ErrInUse
	}
	row := *c
	row.ID = uuid.New()
	row.Status = models.CommentPending
	row.Reply = nil
	row.CreatedAt = r.db.now()
	r.db.comments[row.ID] = row
	return &row, nil
}

func (r memComments) SetStatus(_ context.Context, id uuid.UUID, from, to models.CommentStatus) (bool, error) {
	if err := r.db.enter("comments.SetStatus"); err != nil {
		r.db.mu.Unlock()
		return false, err
	}
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	r.db.comments[id] = c
	return true, nil
}

func (r memComments) SetReply(_ context.Context, id uuid.UUID, reply *string) (bool, error) {
	if err := r.db.enter("comments.SetReply"); err != nil {
		r.db.mu.Unlock()
		return false, err
	}
	defer r.db.mu.Unlock()
	c, ok := r.db.comments[id]
	if !ok {
		return false, nil
	}
	c.Reply = reply
	r.db.comments[id] = c
	return true, nil
}

func (r memComments) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if err := r.db.enter("comments.Delete"); err != nil {
		r.db.mu.Unlock()
		return false, err
	}
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[id]; !ok {
		return false, nil
	}
	delete(r.db.comments, id)
	return true, nil
}

func (r memComments) Count(_ context.Context, status models.CommentStatus) (int, error) {
	if err := r.db.enter("comments.Count"); err != nil {
		r.db.mu.Unlock()
		return 0, err
	}
	defer r.db.mu.Unlock()
	n := 0
	for _, c := range r.db.comments {
		if status == "" || c.Status == status {
			n++
		}
	}
	return n, nil
}

// memCache is an in-memory CommentCache that records invalidations and
// honours generations like the Valkey cache.
type memCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID][]models.Comment
	gens        map[uuid.UUID]int64
	invalidated []uuid.UUID
}

func newMemCache() *memCache {
	return &memCache{entries: map[uuid.UUID][]models.Comment{}, gens: map[uuid.UUID]int64{}}
}

func (c *memCache) Get(_ context.Context, postID uuid.UUID) ([]models.Comment, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[postID]
	return v, c.gens[postID], ok
}

func (c *memCache) Set(_ context.Context, postID uuid.UUID, gen int64, comments []models.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[postID] != gen {
		return
	}
	c.entries[postID] = comments
}

func (c *memCache) Invalidate(_ context.Context, postID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, postID)
	c.gens[postID]++
	c.invalidated = append(c.invalidated, postID)
}

// fixture wires every workflow to one memDB and memCache.
type fixture struct {
	db       *memDB
	cache    *memCache
	reader   *Reader
	comments *Comments
	admin    *Admin
}

func newFixture() *fixture {
	db := newMemDB()
	cache := newMemCache()
	posts, cats, comments := memPosts{db}, memCategories{db}, memComments{db}
	cw := NewComments(posts, comments, cache)
	return &fixture{
		db:       db,
		cache:    cache,
		reader:   NewReader(posts, cats, cw),
		comments: cw,
		admin:    NewAdmin(posts, cats, comments, cache),
	}
}
