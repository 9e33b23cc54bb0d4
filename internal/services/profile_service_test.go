package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/docstore/memstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestEnsureProfileIsIdempotent(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewProfileService(newStore(t), discardLogger())
			id := identity("u1")

			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- svc.EnsureProfile(ctx, id)
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			first, err := svc.GetProfile(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, first)
			require.Equal(t, "u1", first.UID)
			require.Equal(t, "u1@example.com", *first.Email)
			require.Equal(t, "google.com", *first.ProviderID)
			require.Nil(t, first.Nickname)
			require.NotNil(t, first.CreatedAt)

			require.NoError(t, svc.EnsureProfile(ctx, id))
			second, err := svc.GetProfile(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, first, second)
		})
	}
}

func TestEnsureProfileKeepsNickname(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memstore.New(), discardLogger())

	_, err := svc.SetNickname(ctx, identity("u1"), "Alice")
	require.NoError(t, err)
	require.NoError(t, svc.EnsureProfile(ctx, identity("u1")))

	p, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Alice", *p.Nickname)
}

func TestSetNicknameRejectsEmpty(t *testing.T) {
	// A nil store proves validation happens before any store access.
	svc := NewProfileService(nil, discardLogger())
	for _, raw := range []string{"", "   ", "a/b", "__x__"} {
		_, err := svc.SetNickname(context.Background(), identity("u1"), raw)
		require.ErrorIs(t, err, ErrInvalidInput, raw)
	}
}

func TestSetNicknameCreatesClaimAndProfile(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(store, discardLogger())

	p, err := svc.SetNickname(ctx, identity("u1"), "  Alice ")
	require.NoError(t, err)
	require.Equal(t, "Alice", *p.Nickname)
	require.NotNil(t, p.CreatedAt)

	claim, err := svc.LookupNickname(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, "u1", claim.UID)
	require.Equal(t, "Alice", claim.Nickname)
	require.Equal(t, "alice", claim.Normalized)
}

func TestSetNicknameRename(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(store, discardLogger())

	_, err := svc.SetNickname(ctx, identity("a"), "first")
	require.NoError(t, err)
	p, err := svc.SetNickname(ctx, identity("a"), "second")
	require.NoError(t, err)
	require.Equal(t, "second", *p.Nickname)

	old, err := svc.LookupNickname(ctx, "first")
	require.NoError(t, err)
	require.Nil(t, old)

	claim, err := svc.LookupNickname(ctx, "second")
	require.NoError(t, err)
	require.Equal(t, "a", claim.UID)

	// The released nickname is free for someone else.
	_, err = svc.SetNickname(ctx, identity("b"), "First")
	require.NoError(t, err)
	claim, err = svc.LookupNickname(ctx, "first")
	require.NoError(t, err)
	require.Equal(t, "b", claim.UID)
}

func TestSetNicknameSelfReclaim(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memstore.New(), discardLogger())

	_, err := svc.SetNickname(ctx, identity("a"), "alice")
	require.NoError(t, err)
	_, err = svc.SetNickname(ctx, identity("a"), "alice")
	require.NoError(t, err)

	p, err := svc.SetNickname(ctx, identity("a"), "ALICE")
	require.NoError(t, err)
	require.Equal(t, "ALICE", *p.Nickname)

	claim, err := svc.LookupNickname(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "a", claim.UID)
	require.Equal(t, "ALICE", claim.Nickname)
}

func TestSetNicknameCaseInsensitiveCollision(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memstore.New(), discardLogger())

	_, err := svc.SetNickname(ctx, identity("a"), "Alice")
	require.NoError(t, err)

	_, err = svc.SetNickname(ctx, identity("b"), "aLiCe")
	require.ErrorIs(t, err, ErrNicknameTaken)

	p, err := svc.GetProfile(ctx, "b")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestSetNicknameTakenLeavesOldClaim(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memstore.New(), discardLogger())

	_, err := svc.SetNickname(ctx, identity("a"), "alpha")
	require.NoError(t, err)
	_, err = svc.SetNickname(ctx, identity("b"), "beta")
	require.NoError(t, err)

	_, err = svc.SetNickname(ctx, identity("b"), "alpha")
	require.ErrorIs(t, err, ErrNicknameTaken)

	claim, err := svc.LookupNickname(ctx, "beta")
	require.NoError(t, err)
	require.Equal(t, "b", claim.UID)
	p, err := svc.GetProfile(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "beta", *p.Nickname)
}

func TestSetNicknameDoesNotReleaseForeignClaim(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(store, discardLogger())

	// u1's profile points at a claim that belongs to u2.
	require.NoError(t, store.Set(ctx, repository.ProfilePath("u1"), docstore.Data{"uid": "u1", "nickname": "shared"}))
	require.NoError(t, store.Set(ctx, repository.ClaimPath("shared"), docstore.Data{"uid": "u2", "nickname": "shared", "normalized": "shared"}))

	_, err := svc.SetNickname(ctx, identity("u1"), "mine")
	require.NoError(t, err)

	claim, err := svc.LookupNickname(ctx, "shared")
	require.NoError(t, err)
	require.Equal(t, "u2", claim.UID)
}

func TestSetNicknameUniqueUnderConcurrency(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewProfileService(newStore(t), discardLogger())

			const n = 8
			var wg sync.WaitGroup
			winners := make(chan string, n)
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				i := i
				uid := fmt.Sprintf("user%d", i)
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.SetNickname(ctx, identity(uid), fmt.Sprintf("Hero%d", i%2))
					if err == nil {
						winners <- uid
						return
					}
					errs <- err
				}()
			}
			wg.Wait()
			close(winners)
			close(errs)

			for err := range errs {
				require.ErrorIs(t, err, ErrNicknameTaken)
			}

			// Two distinct nicknames were contested; each has exactly one owner.
			var won []string
			for uid := range winners {
				won = append(won, uid)
			}
			require.Len(t, won, 2)

			for _, nick := range []string{"hero0", "hero1"} {
				claim, err := svc.LookupNickname(ctx, nick)
				require.NoError(t, err)
				require.NotNil(t, claim)
				require.Contains(t, won, claim.UID)

				p, err := svc.GetProfile(ctx, claim.UID)
				require.NoError(t, err)
				require.Equal(t, nick, strings.ToLower(*p.Nickname))
			}
		})
	}
}

func TestConcurrentRenamesKeepOneClaimPerUser(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.WithMaxAttempts(100))
	svc := NewProfileService(store, discardLogger())

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SetNickname(ctx, identity("a"), fmt.Sprintf("name%d", i))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	claims, err := store.Query(ctx, docstore.Query{Collection: docstore.Doc("nicknames")})
	require.NoError(t, err)
	require.Len(t, claims, 1)

	p, err := svc.GetProfile(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, claims[0].ID(), *p.Nickname)
}

func TestSubscribeProfile(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memstore.New(), discardLogger())

	updates := make(chan *models.UserProfile, 16)
	sub, err := svc.SubscribeProfile(ctx, "u1", func(p *models.UserProfile) { updates <- p })
	require.NoError(t, err)

	// The initial state is delivered before SubscribeProfile returns.
	select {
	case p := <-updates:
		require.Nil(t, p)
	default:
		t.Fatal("initial state not delivered")
	}

	_, err = svc.SetNickname(ctx, identity("u1"), "Alice")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-updates:
			if p != nil && p.Nickname != nil && *p.Nickname == "Alice" {
				sub.Unsubscribe()
				sub.Unsubscribe()
				select {
				case <-sub.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("subscription did not stop")
				}
				require.NoError(t, sub.Err())
				return
			}
		case <-deadline:
			t.Fatal("profile change not delivered")
		}
	}
}

// unreadableStore fails every point read outside a transaction.
type unreadableStore struct {
	docstore.Store
}

func (unreadableStore) Get(ctx context.Context, p docstore.Path) (*docstore.Snapshot, error) {
	return nil, fmt.Errorf("get %s: %w", p, docstore.ErrUnavailable)
}

func TestSetNicknameSucceedsWhenReReadFails(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewProfileService(unreadableStore{store}, discardLogger())

	p, err := svc.SetNickname(ctx, identity("u1"), " Alice ")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "u1", p.UID)
	require.Equal(t, "Alice", *p.Nickname)
	require.Equal(t, "u1@example.com", *p.Email)
	require.Equal(t, "google.com", *p.ProviderID)

	claim, err := repository.NewUserRepository(store).GetClaim(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, claim)
	require.Equal(t, "u1", claim.UID)
}
