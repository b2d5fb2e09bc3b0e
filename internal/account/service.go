// Package account is the operation façade: every account operation resolves
// its handle through the pool, invokes the remote call, classifies failures
// and enriches returned media URLs with local cache keys.
package account

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clonner/clonner/internal/cache"
	"github.com/clonner/clonner/internal/logging"
	"github.com/clonner/clonner/internal/pool"
	"github.com/clonner/clonner/internal/remote"
)

// Service bundles the pool, cache and logger behind the account operations.
type Service struct {
	pool   *pool.Pool
	cache  *cache.Manager
	logger *logrus.Logger
}

// NewService wires the façade over its collaborators.
func NewService(p *pool.Pool, c *cache.Manager, logger *logrus.Logger) *Service {
	return &Service{pool: p, cache: c, logger: logger}
}

// Login authenticates identity, persisting the session for later restarts.
func (s *Service) Login(ctx context.Context, identity, password string) error {
	if _, err := s.pool.Acquire(ctx, identity, password); err != nil {
		s.logger.WithFields(logging.OpFields(identity, "login")).Warnf("login_failed: %v", err)
		return err
	}
	s.logger.WithFields(logging.OpFields(identity, "login")).Info("login_ok")
	return nil
}

// Profile fetches the account's own profile.
func (s *Service) Profile(ctx context.Context, identity string) (*ProfileView, error) {
	var view *ProfileView
	err := s.withHandle(ctx, identity, "profile", nil, func(handle remote.Handle) error {
		profile, err := handle.AccountInfo(ctx)
		if err != nil {
			return err
		}
		view = &ProfileView{
			UserID:         profile.UserID,
			Username:       profile.Username,
			FullName:       profile.FullName,
			AvatarURL:      profile.AvatarURL,
			AvatarKey:      s.resolveMedia(ctx, profile.AvatarURL),
			FollowerCount:  profile.FollowerCount,
			FollowingCount: profile.FollowingCount,
		}
		return nil
	})
	return view, err
}

// Followings lists the accounts this identity follows. It opts into a
// force-refreshed handle so long-lived pools see a fresh session state.
func (s *Service) Followings(ctx context.Context, identity string) ([]FollowingView, error) {
	var views []FollowingView
	opts := []pool.GetOption{pool.ForceRefresh()}
	err := s.withHandle(ctx, identity, "followings", opts, func(handle remote.Handle) error {
		users, err := handle.Followings(ctx)
		if err != nil {
			return err
		}
		views = make([]FollowingView, 0, len(users))
		for _, user := range users {
			views = append(views, FollowingView{
				UserID:    user.UserID,
				Username:  user.Username,
				FullName:  user.FullName,
				AvatarURL: user.AvatarURL,
				AvatarKey: s.resolveMedia(ctx, user.AvatarURL),
			})
		}
		return nil
	})
	return views, err
}

// FollowMany follows each user independently. A failing item lands in fail
// (or waiting for review-pending restrictions) and never aborts the batch.
func (s *Service) FollowMany(ctx context.Context, identity string, userIDs []string) (*BatchResult, error) {
	result := newBatchResult()
	err := s.withHandle(ctx, identity, "follow_many", nil, func(handle remote.Handle) error {
		for _, userID := range userIDs {
			err := handle.Follow(ctx, userID)
			switch classifyItem(err) {
			case itemOK:
				result.Success = append(result.Success, userID)
			case itemWaiting:
				result.Waiting = append(result.Waiting, userID)
				s.logItem(identity, "follow_many", userID, err)
			case itemFailed:
				result.Fail = append(result.Fail, userID)
				s.logItem(identity, "follow_many", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Collections lists saved collections with their media, every thumbnail
// resolved through the cache. One broken thumbnail degrades to the default
// asset instead of dropping the item.
func (s *Service) Collections(ctx context.Context, identity string) ([]CollectionView, error) {
	var views []CollectionView
	err := s.withHandle(ctx, identity, "collections", nil, func(handle remote.Handle) error {
		collections, err := handle.Collections(ctx)
		if err != nil {
			return err
		}
		views = make([]CollectionView, 0, len(collections))
		for _, collection := range collections {
			medias, err := handle.CollectionMedia(ctx, collection.ID)
			if err != nil {
				return err
			}
			view := CollectionView{
				ID:     collection.ID,
				Name:   collection.Name,
				Amount: collection.MediaCount,
				Medias: make([]MediaView, 0, len(medias)),
			}
			for _, media := range medias {
				view.Medias = append(view.Medias, MediaView{
					MediaID:      media.MediaID,
					ThumbnailURL: media.ThumbnailURL,
					ThumbnailKey: s.resolveMedia(ctx, media.ThumbnailURL),
				})
			}
			views = append(views, view)
		}
		return nil
	})
	return views, err
}

// SaveMany saves each media into the collection independently; the partition
// is binary (no waiting state exists for saves).
func (s *Service) SaveMany(ctx context.Context, identity string, mediaIDs []string, collectionID string) (*BatchResult, error) {
	result := newBatchResult()
	err := s.withHandle(ctx, identity, "save_many", nil, func(handle remote.Handle) error {
		for _, mediaID := range mediaIDs {
			if err := handle.SaveMedia(ctx, mediaID, collectionID); err != nil {
				result.Fail = append(result.Fail, mediaID)
				s.logItem(identity, "save_many", mediaID, err)
				continue
			}
			result.Success = append(result.Success, mediaID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withHandle is the shared wrapper every operation goes through: resolve the
// handle, run the call, classify what comes back. It replaces the per-route
// auth-check/try/log boilerplate of the original.
func (s *Service) withHandle(ctx context.Context, identity, operation string, opts []pool.GetOption, fn func(remote.Handle) error) error {
	handle, err := s.pool.Get(ctx, identity, opts...)
	if err != nil {
		s.logger.WithFields(logging.OpFields(identity, operation)).Warnf("handle_unavailable: %v", err)
		return err
	}

	if err := fn(handle); err != nil {
		return s.classify(identity, operation, err)
	}
	return nil
}

// classify splits remote failures into restriction vs. internal. A
// login_required restriction additionally evicts the poisoned handle.
func (s *Service) classify(identity, operation string, err error) error {
	if restriction, ok := remote.AsRestriction(err); ok {
		if restriction.Reason == remote.ReasonLoginRequired {
			s.pool.Invalidate(identity)
		}
		s.logger.WithFields(logging.OpFields(identity, operation)).Warnf("remote_restricted: %v", err)
		return fmt.Errorf("%w: %w", pool.ErrRemoteRestricted, err)
	}

	s.logger.WithFields(logging.OpFields(identity, operation)).Errorf("operation_failed: %v", err)
	return err
}

// resolveMedia maps a media URL to a local cache key; empty URLs short-cut to
// the default asset without logging noise.
func (s *Service) resolveMedia(ctx context.Context, sourceURL string) string {
	if sourceURL == "" {
		return s.cache.DefaultAsset()
	}
	return s.cache.Resolve(ctx, sourceURL, false)
}

type itemOutcome int

const (
	itemOK itemOutcome = iota
	itemWaiting
	itemFailed
)

// classifyItem decides the batch bucket for one item. Review-pending
// restrictions wait; everything else that errored failed.
func classifyItem(err error) itemOutcome {
	if err == nil {
		return itemOK
	}
	if restriction, ok := remote.AsRestriction(err); ok && restriction.Reason == remote.ReasonFeedbackRequired {
		return itemWaiting
	}
	return itemFailed
}

func (s *Service) logItem(identity, operation, item string, err error) {
	fields := logging.OpFields(identity, operation)
	fields["item"] = item
	s.logger.WithFields(fields).Warnf("batch_item_failed: %v", err)
}
