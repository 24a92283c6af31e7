package services

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog/log"

	"traveltales/metrics"
	"traveltales/store"
	apierrors "traveltales/utils/errors"
)

// SocialService maintains follow edges. An edge lives on two documents:
// follower.following (authoritative) and target.followers (mirror). The two
// writes are not transactional; both use set semantics so a retry after a
// partial failure converges, and Reconcile rebuilds the mirrors.
type SocialService struct {
	users store.UserStore
	cache UserCache
}

func NewSocialService(users store.UserStore, cache UserCache) *SocialService {
	return &SocialService{users: users, cache: cache}
}

func (s *SocialService) Follow(ctx context.Context, followerID, targetID string) (err error) {
	defer func() { metrics.FollowMutations.WithLabelValues("follow", metrics.Result(err)).Inc() }()

	if followerID == "" || targetID == "" {
		return apierrors.Validation("User ID is required")
	}
	if followerID == targetID {
		return apierrors.Validation("Cannot follow yourself")
	}

	follower, err := s.users.GetUser(ctx, followerID)
	if err != nil {
		return storeError(err, "User not found", "get follower")
	}
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return storeError(err, "User not found", "get follow target")
	}
	if slices.Contains(follower.Following, targetID) && slices.Contains(target.Followers, followerID) {
		return nil
	}

	defer s.cache.InvalidateUser(ctx, followerID, targetID)
	if err := s.users.AddFollowing(ctx, followerID, targetID); err != nil {
		return storeError(err, "User not found", "add following")
	}
	if err := s.users.AddFollower(ctx, targetID, followerID); err != nil {
		log.Error().Err(err).Str("follower", followerID).Str("target", targetID).Msg("Follow edge left asymmetric")
		return storeError(err, "User not found", "add follower")
	}
	log.Info().Str("follower", followerID).Str("target", targetID).Msg("Followed user")
	return nil
}

// Unfollow removes the edge. A missing target still has its id pulled from
// the follower, so edges to deleted users can be dropped.
func (s *SocialService) Unfollow(ctx context.Context, followerID, targetID string) (err error) {
	defer func() { metrics.FollowMutations.WithLabelValues("unfollow", metrics.Result(err)).Inc() }()

	if followerID == "" || targetID == "" {
		return apierrors.Validation("User ID is required")
	}
	if followerID == targetID {
		return apierrors.Validation("Cannot unfollow yourself")
	}

	defer s.cache.InvalidateUser(ctx, followerID, targetID)
	if err := s.users.RemoveFollowing(ctx, followerID, targetID); err != nil {
		return storeError(err, "User not found", "remove following")
	}
	if err := s.users.RemoveFollower(ctx, targetID, followerID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Str("follower", followerID).Str("target", targetID).Msg("Unfollow edge left asymmetric")
		return apierrors.Dependency(err, "remove follower")
	}
	log.Info().Str("follower", followerID).Str("target", targetID).Msg("Unfollowed user")
	return nil
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	UsersScanned     int `json:"usersScanned"`
	DanglingRemoved  int `json:"danglingRemoved"`
	FollowersAdded   int `json:"followersAdded"`
	FollowersRemoved int `json:"followersRemoved"`
}

// Reconcile drops following entries that point at missing users or at the
// user itself, then makes every followers set the exact inverse of the
// following sets. It patches with per-member $addToSet/$pull rather than
// overwriting whole arrays. ListUsers is not a snapshot, so a follow or
// unfollow racing the pass can be patched from stale data; the mirror
// converges on the next pass.
func (s *SocialService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return report, apierrors.Dependency(err, "list users")
	}
	report.UsersScanned = len(users)

	exists := make(map[string]bool, len(users))
	for _, u := range users {
		exists[u.ID] = true
	}

	expected := make(map[string]map[string]bool, len(users))
	for _, u := range users {
		for _, target := range u.Following {
			if !exists[target] || target == u.ID {
				if err := s.users.RemoveFollowing(ctx, u.ID, target); err != nil && !errors.Is(err, store.ErrNotFound) {
					return report, apierrors.Dependency(err, "remove dangling following")
				}
				report.DanglingRemoved++
				s.cache.InvalidateUser(ctx, u.ID)
				continue
			}
			if expected[target] == nil {
				expected[target] = make(map[string]bool)
			}
			expected[target][u.ID] = true
		}
	}

	for _, u := range users {
		want := expected[u.ID]
		changed := false
		for follower := range want {
			if !slices.Contains(u.Followers, follower) {
				if err := s.users.AddFollower(ctx, u.ID, follower); err != nil && !errors.Is(err, store.ErrNotFound) {
					return report, apierrors.Dependency(err, "add missing follower")
				}
				report.FollowersAdded++
				changed = true
			}
		}
		for _, follower := range u.Followers {
			if !want[follower] {
				if err := s.users.RemoveFollower(ctx, u.ID, follower); err != nil && !errors.Is(err, store.ErrNotFound) {
					return report, apierrors.Dependency(err, "remove stale follower")
				}
				report.FollowersRemoved++
				changed = true
			}
		}
		if changed {
			metrics.ReconcileRepairs.Inc()
			s.cache.InvalidateUser(ctx, u.ID)
		}
	}

	log.Info().
		Int("users", report.UsersScanned).
		Int("dangling_removed", report.DanglingRemoved).
		Int("followers_added", report.FollowersAdded).
		Int("followers_removed", report.FollowersRemoved).
		Msg("Follow graph reconciled")
	return report, nil
}
