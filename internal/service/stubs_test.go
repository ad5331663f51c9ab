package service

import (
	"context"
	"sync"
	"time"

	"sociallink/internal/models"
)

type userRepoStub struct {
	createFn           func(context.Context, *models.User) error
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getWithProfileFn   func(context.Context, uint) (*models.User, error)
	getByEmailFn       func(context.Context, string) (*models.User, error)
	existsFn           func(context.Context, uint) (bool, error)
	setActiveFn        func(context.Context, uint, bool) error
	setOTPFn           func(context.Context, uint, string, time.Time) error
	markOTPValidatedFn func(context.Context, uint) error
	updatePasswordFn   func(context.Context, uint, string) error
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetWithProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.getWithProfileFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *userRepoStub) SetActive(ctx context.Context, id uint, active bool) error {
	return s.setActiveFn(ctx, id, active)
}
func (s *userRepoStub) SetOTP(ctx context.Context, id uint, otp string, expiresAt time.Time) error {
	return s.setOTPFn(ctx, id, otp, expiresAt)
}
func (s *userRepoStub) MarkOTPValidated(ctx context.Context, id uint) error {
	return s.markOTPValidatedFn(ctx, id)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:           func(context.Context, *models.User) error { return nil },
		getByIDFn:          func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getWithProfileFn:   func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:       func(context.Context, string) (*models.User, error) { return nil, models.NewNotFoundMessage("User not found") },
		existsFn:           func(context.Context, uint) (bool, error) { return true, nil },
		setActiveFn:        func(context.Context, uint, bool) error { return nil },
		setOTPFn:           func(context.Context, uint, string, time.Time) error { return nil },
		markOTPValidatedFn: func(context.Context, uint) error { return nil },
		updatePasswordFn:   func(context.Context, uint, string) error { return nil },
	}
}

type profileRepoStub struct {
	createFn         func(context.Context, *models.Profile) error
	getByUserIDFn    func(context.Context, uint) (*models.Profile, error)
	upsertFn         func(context.Context, uint, func(*models.Profile) error) (*models.Profile, error)
	deleteByUserIDFn func(context.Context, uint) (*models.Profile, error)
}

func (s *profileRepoStub) Create(ctx context.Context, p *models.Profile) error {
	return s.createFn(ctx, p)
}
func (s *profileRepoStub) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.getByUserIDFn(ctx, userID)
}
func (s *profileRepoStub) Upsert(ctx context.Context, userID uint, apply func(*models.Profile) error) (*models.Profile, error) {
	return s.upsertFn(ctx, userID, apply)
}
func (s *profileRepoStub) DeleteByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.deleteByUserIDFn(ctx, userID)
}

type connectionRepoStub struct {
	createIfAbsentFn      func(context.Context, *models.Connection) (*models.Connection, error)
	getByIDFn             func(context.Context, uint) (*models.Connection, error)
	findBetweenFn         func(context.Context, uint, uint) (*models.Connection, error)
	acceptPendingFn       func(context.Context, uint, uint) (bool, error)
	deletePendingFn       func(context.Context, uint, uint) (bool, error)
	deleteBetweenFn       func(context.Context, uint, uint) (bool, error)
	listPendingReceivedFn func(context.Context, uint) ([]models.Connection, error)
	listPendingSentFn     func(context.Context, uint) ([]models.Connection, error)
	listAllFn             func(context.Context, uint) ([]models.Connection, error)
	listConnectedUsersFn  func(context.Context, uint) ([]models.User, error)
	suggestUsersFn        func(context.Context, uint, int) ([]models.User, error)
}

func (s *connectionRepoStub) CreateIfAbsent(ctx context.Context, c *models.Connection) (*models.Connection, error) {
	return s.createIfAbsentFn(ctx, c)
}
func (s *connectionRepoStub) GetByID(ctx context.Context, id uint) (*models.Connection, error) {
	return s.getByIDFn(ctx, id)
}
func (s *connectionRepoStub) FindBetween(ctx context.Context, a, b uint) (*models.Connection, error) {
	return s.findBetweenFn(ctx, a, b)
}
func (s *connectionRepoStub) AcceptPending(ctx context.Context, id, receiverID uint) (bool, error) {
	return s.acceptPendingFn(ctx, id, receiverID)
}
func (s *connectionRepoStub) DeletePending(ctx context.Context, id, receiverID uint) (bool, error) {
	return s.deletePendingFn(ctx, id, receiverID)
}
func (s *connectionRepoStub) DeleteBetween(ctx context.Context, a, b uint) (bool, error) {
	return s.deleteBetweenFn(ctx, a, b)
}
func (s *connectionRepoStub) ListPendingReceived(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.listPendingReceivedFn(ctx, userID)
}
func (s *connectionRepoStub) ListPendingSent(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.listPendingSentFn(ctx, userID)
}
func (s *connectionRepoStub) ListAll(ctx context.Context, userID uint) ([]models.Connection, error) {
	return s.listAllFn(ctx, userID)
}
func (s *connectionRepoStub) ListConnectedUsers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.listConnectedUsersFn(ctx, userID)
}
func (s *connectionRepoStub) SuggestUsers(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	return s.suggestUsersFn(ctx, userID, limit)
}

func noopConnectionRepo() *connectionRepoStub {
	return &connectionRepoStub{
		createIfAbsentFn: func(_ context.Context, c *models.Connection) (*models.Connection, error) {
			c.ID = 1
			return nil, nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Connection, error) {
			return &models.Connection{ID: id}, nil
		},
		findBetweenFn:         func(context.Context, uint, uint) (*models.Connection, error) { return nil, nil },
		acceptPendingFn:       func(context.Context, uint, uint) (bool, error) { return true, nil },
		deletePendingFn:       func(context.Context, uint, uint) (bool, error) { return true, nil },
		deleteBetweenFn:       func(context.Context, uint, uint) (bool, error) { return true, nil },
		listPendingReceivedFn: func(context.Context, uint) ([]models.Connection, error) { return nil, nil },
		listPendingSentFn:     func(context.Context, uint) ([]models.Connection, error) { return nil, nil },
		listAllFn:             func(context.Context, uint) ([]models.Connection, error) { return nil, nil },
		listConnectedUsersFn:  func(context.Context, uint) ([]models.User, error) { return nil, nil },
		suggestUsersFn:        func(context.Context, uint, int) ([]models.User, error) { return nil, nil },
	}
}

type postRepoStub struct {
	createFn     func(context.Context, *models.Post) error
	getFn        func(context.Context, uint) (*models.Post, error)
	getByIDFn    func(context.Context, uint, uint) (*models.Post, error)
	existsFn     func(context.Context, uint) (bool, error)
	listFn       func(context.Context, int, int, uint) ([]*models.Post, error)
	listByUserFn func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	updateFn     func(context.Context, *models.Post) error
	deleteFn     func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.getFn(ctx, id)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, viewerID)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID, limit, offset, viewerID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		},
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		},
		existsFn:     func(context.Context, uint) (bool, error) { return true, nil },
		listFn:       func(context.Context, int, int, uint) ([]*models.Post, error) { return nil, nil },
		listByUserFn: func(context.Context, uint, int, int, uint) ([]*models.Post, error) { return nil, nil },
		updateFn:     func(context.Context, *models.Post) error { return nil },
		deleteFn:     func(context.Context, uint) error { return nil },
	}
}

type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	getThreadFn  func(context.Context, uint) (*models.Comment, error)
	existsFn     func(context.Context, uint) (bool, error)
	listByPostFn func(context.Context, uint) ([]*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) GetThread(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getThreadFn(ctx, id)
}
func (s *commentRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}

type likeRepoStub struct {
	toggleFn       func(context.Context, uint, models.LikeTarget) (bool, error)
	countFn        func(context.Context, models.LikeTarget) (int64, error)
	isLikedFn      func(context.Context, uint, models.LikeTarget) (bool, error)
	targetExistsFn func(context.Context, models.LikeTarget) (bool, error)
	listLikersFn   func(context.Context, models.LikeTarget) ([]models.User, error)
}

func (s *likeRepoStub) Toggle(ctx context.Context, userID uint, t models.LikeTarget) (bool, error) {
	return s.toggleFn(ctx, userID, t)
}
func (s *likeRepoStub) Count(ctx context.Context, t models.LikeTarget) (int64, error) {
	return s.countFn(ctx, t)
}
func (s *likeRepoStub) IsLiked(ctx context.Context, userID uint, t models.LikeTarget) (bool, error) {
	return s.isLikedFn(ctx, userID, t)
}
func (s *likeRepoStub) TargetExists(ctx context.Context, t models.LikeTarget) (bool, error) {
	return s.targetExistsFn(ctx, t)
}
func (s *likeRepoStub) ListLikers(ctx context.Context, t models.LikeTarget) ([]models.User, error) {
	return s.listLikersFn(ctx, t)
}

type sentEvent struct {
	UserID uint
	Type   string
}

// notifierStub records events instead of publishing them.
type notifierStub struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *notifierStub) Notify(_ context.Context, userID uint, eventType string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Type: eventType})
	return n.err
}

func (n *notifierStub) sent() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.events...)
}
