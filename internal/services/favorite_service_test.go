package services

import (
	"context"
	"testing"

	"github.com/hunyoung529/onepick/internal/docstore/memstore"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestToggleFavorite(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewFavoriteService(newStore(t), discardLogger())
			rating := 9.8
			w := models.Work{Platform: "naver", ID: "747269", Title: strPtr("Omniscient Reader"), Rating: &rating}

			added, err := svc.ToggleFavorite(ctx, "u1", w)
			require.NoError(t, err)
			require.True(t, added)

			ok, err := svc.IsFavorite(ctx, "u1", "naver", "747269")
			require.NoError(t, err)
			require.True(t, ok)

			favs, err := svc.ListFavorites(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, favs, 1)
			require.Equal(t, "747269", favs[0].ID)
			require.Equal(t, "Omniscient Reader", *favs[0].Title)
			require.Equal(t, 9.8, *favs[0].Rating)
			require.Nil(t, favs[0].Author)

			added, err = svc.ToggleFavorite(ctx, "u1", w)
			require.NoError(t, err)
			require.False(t, added)

			ok, err = svc.IsFavorite(ctx, "u1", "naver", "747269")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestToggleFavoriteRejectsBadWork(t *testing.T) {
	svc := NewFavoriteService(memstore.New(), discardLogger())
	_, err := svc.ToggleFavorite(context.Background(), "u1", models.Work{Platform: "naver"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.ToggleFavorite(context.Background(), "u1", models.Work{Platform: "naver", ID: "../x"})
	require.ErrorIs(t, err, ErrInvalidInput)
}
