package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"tutorials/api/internal/authpw"
	"tutorials/api/internal/config"
	"tutorials/api/internal/session"
	"tutorials/api/internal/store"
	"tutorials/api/internal/tree"
)

type fakeStore struct {
	pingFn          func(context.Context) error
	hasAdminsFn     func(context.Context) (bool, error)
	createAdminFn   func(context.Context, store.Admin) (int64, error)
	getAdminFn      func(context.Context, string) (store.Admin, error)
	createUserFn    func(context.Context, store.User) (int64, error)
	getUserFn       func(context.Context, string) (store.User, error)
	createTopicFn   func(context.Context, store.NewTopic) (int64, error)
	updateTopicFn   func(context.Context, int64, store.TopicPatch) (int64, error)
	deleteTopicFn   func(context.Context, int64) (int64, error)
	getTopicFn      func(context.Context, int64) (store.Topic, error)
	getByPathFn     func(context.Context, string) (store.Topic, error)
	getBySegmentsFn func(context.Context, []string) (store.Topic, error)
	listChildrenFn  func(context.Context, *int64) ([]store.Topic, error)
	listRootFn      func(context.Context, store.RootListOptions) ([]store.Topic, error)
	buildSubtreeFn  func(context.Context, *int64, int) ([]store.TopicNode, error)
	bulkReorderFn   func(context.Context, *int64, []tree.ReorderItem) ([]store.OrderAssignment, error)
	rebuildPathsFn  func(context.Context) (int, error)
	createBlockFn   func(context.Context, store.NewBlock) (store.BlockResult, error)
	listBlocksFn    func(context.Context, int64) ([]store.ContentBlock, error)
	getBlockFn      func(context.Context, int64) (store.ContentBlock, error)
	updateBlockFn   func(context.Context, int64, store.BlockPatch) (int64, error)
	deleteBlockFn   func(context.Context, int64) (int64, error)
	createCommentFn func(context.Context, store.Comment) (int64, error)
	likeCommentFn   func(context.Context, int64, int64) error
	createMCQFn     func(context.Context, store.MCQ) (int64, error)
	getMCQFn        func(context.Context, int64) (store.MCQ, error)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) HasAdmins(ctx context.Context) (bool, error) {
	if f.hasAdminsFn != nil {
		return f.hasAdminsFn(ctx)
	}
	return true, nil
}

func (f *fakeStore) CreateAdmin(ctx context.Context, admin store.Admin) (int64, error) {
	if f.createAdminFn != nil {
		return f.createAdminFn(ctx, admin)
	}
	return 1, nil
}

func (f *fakeStore) GetAdminByEmail(ctx context.Context, email string) (store.Admin, error) {
	if f.getAdminFn != nil {
		return f.getAdminFn(ctx, email)
	}
	return store.Admin{}, store.ErrNotFound
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) (int64, error) {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return 1, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserFn != nil {
		return f.getUserFn(ctx, email)
	}
	return store.User{}, store.ErrNotFound
}

func (f *fakeStore) CreateTopic(ctx context.Context, in store.NewTopic) (int64, error) {
	if f.createTopicFn != nil {
		return f.createTopicFn(ctx, in)
	}
	return 1, nil
}

func (f *fakeStore) UpdateTopic(ctx context.Context, id int64, patch store.TopicPatch) (int64, error) {
	if f.updateTopicFn != nil {
		return f.updateTopicFn(ctx, id, patch)
	}
	return 1, nil
}

func (f *fakeStore) DeleteTopic(ctx context.Context, id int64) (int64, error) {
	if f.deleteTopicFn != nil {
		return f.deleteTopicFn(ctx, id)
	}
	return 1, nil
}

func (f *fakeStore) GetTopic(ctx context.Context, id int64) (store.Topic, error) {
	if f.getTopicFn != nil {
		return f.getTopicFn(ctx, id)
	}
	return store.Topic{}, store.ErrNotFound
}

func (f *fakeStore) GetTopicByFullPath(ctx context.Context, fullPath string) (store.Topic, error) {
	if f.getByPathFn != nil {
		return f.getByPathFn(ctx, fullPath)
	}
	return store.Topic{}, store.ErrNotFound
}

func (f *fakeStore) GetTopicBySlugSegments(ctx context.Context, segments []string) (store.Topic, error) {
	if f.getBySegmentsFn != nil {
		return f.getBySegmentsFn(ctx, segments)
	}
	return store.Topic{}, store.ErrNotFound
}

func (f *fakeStore) ListChildren(ctx context.Context, parentID *int64) ([]store.Topic, error) {
	if f.listChildrenFn != nil {
		return f.listChildrenFn(ctx, parentID)
	}
	return []store.Topic{}, nil
}

func (f *fakeStore) ListRootTopics(ctx context.Context, opts store.RootListOptions) ([]store.Topic, error) {
	if f.listRootFn != nil {
		return f.listRootFn(ctx, opts)
	}
	return []store.Topic{}, nil
}

func (f *fakeStore) BuildSubtree(ctx context.Context, parentID *int64, depth int) ([]store.TopicNode, error) {
	if f.buildSubtreeFn != nil {
		return f.buildSubtreeFn(ctx, parentID, depth)
	}
	return []store.TopicNode{}, nil
}

func (f *fakeStore) BulkReorder(ctx context.Context, parentID *int64, items []tree.ReorderItem) ([]store.OrderAssignment, error) {
	if f.bulkReorderFn != nil {
		return f.bulkReorderFn(ctx, parentID, items)
	}
	return []store.OrderAssignment{}, nil
}

func (f *fakeStore) RebuildPaths(ctx context.Context) (int, error) {
	if f.rebuildPathsFn != nil {
		return f.rebuildPathsFn(ctx)
	}
	return 0, nil
}

func (f *fakeStore) CreateBlock(ctx context.Context, in store.NewBlock) (store.BlockResult, error) {
	if f.createBlockFn != nil {
		return f.createBlockFn(ctx, in)
	}
	return store.BlockResult{ID: 1}, nil
}

func (f *fakeStore) GetBlocksByTopic(ctx context.Context, topicID int64) ([]store.ContentBlock, error) {
	if f.listBlocksFn != nil {
		return f.listBlocksFn(ctx, topicID)
	}
	return []store.ContentBlock{}, nil
}

func (f *fakeStore) GetBlock(ctx context.Context, id int64) (store.ContentBlock, error) {
	if f.getBlockFn != nil {
		return f.getBlockFn(ctx, id)
	}
	return store.ContentBlock{}, store.ErrNotFound
}

func (f *fakeStore) UpdateBlock(ctx context.Context, id int64, patch store.BlockPatch) (int64, error) {
	if f.updateBlockFn != nil {
		return f.updateBlockFn(ctx, id, patch)
	}
	return 1, nil
}

func (f *fakeStore) DeleteBlock(ctx context.Context, id int64) (int64, error) {
	if f.deleteBlockFn != nil {
		return f.deleteBlockFn(ctx, id)
	}
	return 1, nil
}

func (f *fakeStore) CreateComment(ctx context.Context, comment store.Comment) (int64, error) {
	if f.createCommentFn != nil {
		return f.createCommentFn(ctx, comment)
	}
	return 1, nil
}

func (f *fakeStore) ListComments(context.Context, int64) ([]store.Comment, error) {
	return []store.Comment{}, nil
}

func (f *fakeStore) LikeComment(ctx context.Context, commentID, userID int64) error {
	if f.likeCommentFn != nil {
		return f.likeCommentFn(ctx, commentID, userID)
	}
	return nil
}

func (f *fakeStore) CreateMCQ(ctx context.Context, mcq store.MCQ) (int64, error) {
	if f.createMCQFn != nil {
		return f.createMCQFn(ctx, mcq)
	}
	return 1, nil
}

func (f *fakeStore) GetMCQ(ctx context.Context, id int64) (store.MCQ, error) {
	if f.getMCQFn != nil {
		return f.getMCQFn(ctx, id)
	}
	return store.MCQ{}, store.ErrNotFound
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg:      config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour},
		store:    fs,
		accounts: authpw.NewService(fs).WithCost(bcrypt.MinCost),
		revoked:  session.NewMemoryStore(),
		log:      zerolog.Nop(),
	}
}
