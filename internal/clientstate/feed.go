package clientstate

import (
	"context"
	"errors"
	"sync"

	"sociallink/internal/models"
)

// ErrNotCached is returned when an optimistic action names an entity the
// feed has not loaded.
var ErrNotCached = errors.New("entity not in feed cache")

// CommentView is a cached comment. TempID is set while it is a placeholder
// awaiting the server.
type CommentView struct {
	models.Comment
	TempID string        `json:"temp_id,omitempty"`
	Liked  bool          `json:"liked"`
	Nested []CommentView `json:"nested"`
}

// LikeState is the like flag and count shown for a target.
type LikeState struct {
	Liked bool
	Count int64
}

// FeedState caches posts, their comment threads and like state for one
// signed-in viewer. It is safe for concurrent use.
type FeedState struct {
	mu       sync.RWMutex
	api      API
	session  *Session
	order    []uint
	posts    map[uint]*models.Post
	comments map[uint][]CommentView
}

func NewFeedState(api API, session *Session) *FeedState {
	return &FeedState{
		api:      api,
		session:  session,
		posts:    make(map[uint]*models.Post),
		comments: make(map[uint][]CommentView),
	}
}

// Load replaces the cached feed with the given page of posts.
func (f *FeedState) Load(ctx context.Context, limit, offset int) error {
	posts, err := f.api.ListPosts(ctx, limit, offset)
	if err != nil {
		return err
	}
	f.SetPosts(posts)
	return nil
}

// LoadComments fetches and caches the thread of one post.
func (f *FeedState) LoadComments(ctx context.Context, postID uint) error {
	comments, err := f.api.ListPostComments(ctx, postID)
	if err != nil {
		return err
	}
	f.SetComments(postID, comments)
	return nil
}

func (f *FeedState) SetPosts(posts []*models.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = f.order[:0]
	f.posts = make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		cp := *p
		f.posts[p.ID] = &cp
		f.order = append(f.order, p.ID)
	}
}

func (f *FeedState) SetComments(postID uint, comments []models.Comment) {
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, toView(c))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[postID] = views
}

func toView(c models.Comment) CommentView {
	v := CommentView{Comment: c, Nested: make([]CommentView, 0, len(c.Replies))}
	for _, r := range c.Replies {
		v.Nested = append(v.Nested, toView(r))
	}
	v.Comment.Replies = nil
	return v
}

// Posts returns copies of the cached posts in feed order.
func (f *FeedState) Posts() []models.Post {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Post, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.posts[id])
	}
	return out
}

func (f *FeedState) Post(id uint) (models.Post, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.posts[id]
	if !ok {
		return models.Post{}, false
	}
	return *p, true
}

// Comments returns a deep copy of the cached thread of postID.
func (f *FeedState) Comments(postID uint) []CommentView {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneViews(f.comments[postID])
}

func cloneViews(in []CommentView) []CommentView {
	out := make([]CommentView, len(in))
	for i, v := range in {
		out[i] = v
		out[i].Nested = cloneViews(v.Nested)
	}
	return out
}

// findComment locates a cached comment by server id. Callers hold f.mu.
func (f *FeedState) findComment(id uint) *CommentView {
	for postID := range f.comments {
		thread := f.comments[postID]
		for i := range thread {
			if thread[i].ID == id {
				return &thread[i]
			}
			for j := range thread[i].Nested {
				if thread[i].Nested[j].ID == id {
					return &thread[i].Nested[j]
				}
			}
		}
	}
	return nil
}

// likeRef reads and writes the like state of target. Callers hold f.mu.
func (f *FeedState) likeRef(target models.LikeTarget) (get func() LikeState, set func(LikeState), ok bool) {
	switch target.Kind {
	case models.LikeKindPost:
		p, found := f.posts[target.ID]
		if !found {
			return nil, nil, false
		}
		return func() LikeState { return LikeState{Liked: p.Liked, Count: int64(p.LikesCount)} },
			func(s LikeState) { p.Liked, p.LikesCount = s.Liked, int(s.Count) }, true
	case models.LikeKindComment:
		if f.findComment(target.ID) == nil {
			return nil, nil, false
		}
		// threads may be replaced while the request is in flight, so look
		// the comment up again on every access
		get = func() LikeState {
			if c := f.findComment(target.ID); c != nil {
				return LikeState{Liked: c.Liked, Count: int64(c.LikesCount)}
			}
			return LikeState{}
		}
		set = func(s LikeState) {
			if c := f.findComment(target.ID); c != nil {
				c.Liked, c.LikesCount = s.Liked, int(s.Count)
			}
		}
		return get, set, true
	}
	return nil, nil, false
}

// ToggleLikeOptimistic flips the like at once, then asks the server. On
// success the server's flag and count replace the guess; on failure the
// previous state comes back. Failures are not retried.
func (f *FeedState) ToggleLikeOptimistic(ctx context.Context, target models.LikeTarget) (*Pending[LikeState], error) {
	f.mu.Lock()
	get, set, ok := f.likeRef(target)
	if !ok {
		f.mu.Unlock()
		return nil, ErrNotCached
	}
	prev := get()
	next := LikeState{Liked: !prev.Liked, Count: prev.Count + 1}
	if prev.Liked {
		next.Count = max(prev.Count-1, 0)
	}
	set(next)
	f.mu.Unlock()

	pending := NewPending(next)
	res, err := f.api.ToggleLike(ctx, target)

	f.mu.Lock()
	defer f.mu.Unlock()
	// the entity may have been evicted by a reload in the meantime
	_, set, ok = f.likeRef(target)
	if err != nil {
		if ok {
			set(prev)
		}
		_ = pending.Rollback(err)
		return pending, err
	}
	confirmed := LikeState{Liked: res.Liked, Count: res.LikedItem.LikesCount}
	if ok {
		set(confirmed)
	}
	_ = pending.Confirm(res.LikedItem.ID, confirmed)
	return pending, nil
}

// AddCommentOptimistic shows a placeholder comment under a temporary id,
// then posts it. A top-level success swaps the placeholder for the server
// comment; a reply success swaps the whole master thread for the server's.
// Either way the post's comment count is then re-read from the server.
// A failure removes the placeholder.
func (f *FeedState) AddCommentOptimistic(ctx context.Context, postID uint, content string, masterCommentID *uint) (*Pending[models.Comment], error) {
	placeholder := models.Comment{
		PostID:          postID,
		UserID:          f.session.UserID(),
		Content:         content,
		MasterCommentID: masterCommentID,
	}
	pending := NewPending(placeholder)
	view := CommentView{Comment: placeholder, TempID: pending.TempID(), Nested: []CommentView{}}

	f.mu.Lock()
	post, ok := f.posts[postID]
	if !ok {
		f.mu.Unlock()
		return nil, ErrNotCached
	}
	thread := f.comments[postID]
	if masterCommentID == nil {
		f.comments[postID] = append([]CommentView{view}, thread...)
	} else {
		i := indexOf(thread, *masterCommentID)
		if i < 0 {
			f.mu.Unlock()
			return nil, ErrNotCached
		}
		thread[i].Nested = append(thread[i].Nested, view)
	}
	post.CommentsCount++
	f.mu.Unlock()

	created, err := f.api.CreateComment(ctx, postID, content, masterCommentID)

	f.mu.Lock()
	f.removePlaceholder(postID, pending.TempID())
	if err != nil {
		if p, ok := f.posts[postID]; ok && p.CommentsCount > 0 {
			p.CommentsCount--
		}
		f.mu.Unlock()
		_ = pending.Rollback(err)
		return pending, err
	}

	server := toView(*created)
	thread = f.comments[postID]
	if i := indexOf(thread, server.ID); i >= 0 {
		thread[i] = server
	} else {
		f.comments[postID] = append([]CommentView{server}, thread...)
	}
	f.mu.Unlock()
	_ = pending.Confirm(created.ID, *created)

	f.refreshCommentsCount(ctx, postID)
	return pending, nil
}

// refreshCommentsCount replaces a cached post's comment count with the
// server's. A failed read keeps the optimistic count.
func (f *FeedState) refreshCommentsCount(ctx context.Context, postID uint) {
	fresh, err := f.api.GetPost(ctx, postID)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.posts[postID]; ok {
		p.CommentsCount = fresh.CommentsCount
	}
}

func indexOf(thread []CommentView, id uint) int {
	for i := range thread {
		if thread[i].ID == id && thread[i].TempID == "" {
			return i
		}
	}
	return -1
}

// removePlaceholder drops the entry with tempID. Callers hold f.mu.
func (f *FeedState) removePlaceholder(postID uint, tempID string) {
	thread := f.comments[postID]
	for i := range thread {
		if thread[i].TempID == tempID {
			f.comments[postID] = append(thread[:i:i], thread[i+1:]...)
			return
		}
		nested := thread[i].Nested
		for j := range nested {
			if nested[j].TempID == tempID {
				thread[i].Nested = append(nested[:j:j], nested[j+1:]...)
				return
			}
		}
	}
}
