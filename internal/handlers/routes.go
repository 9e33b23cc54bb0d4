package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/middleware"
	"github.com/hunyoung529/onepick/internal/services"
)

// Services are the dependencies of the HTTP API.
type Services struct {
	Profiles  *services.ProfileService
	Votes     *services.VoteService
	Comments  *services.CommentService
	Favorites *services.FavoriteService
	Rankings  *services.RankingService
}

// RegisterRoutes mounts the API under /api
func RegisterRoutes(router *gin.Engine, svc Services, verifier middleware.TokenVerifier) {
	profileHandler := NewProfileHandler(svc.Profiles)
	commentHandler := NewCommentHandler(svc.Comments, svc.Votes)
	favoriteHandler := NewFavoriteHandler(svc.Favorites, svc.Rankings)
	rankingHandler := NewRankingHandler(svc.Rankings)

	requireAuth := middleware.AuthMiddleware(verifier)

	api := router.Group("/api")
	{
		// Read-only projections (public)
		api.GET("/rankings/:platform/latest", rankingHandler.Latest)
		api.GET("/rankings/:platform/:date", rankingHandler.SnapshotItems)
		api.GET("/works/:platform/:id", rankingHandler.GetWork)
		api.GET("/nicknames/:nickname", profileHandler.LookupNickname)

		works := api.Group("/works/:platform/:id")
		{
			works.GET("/comments", middleware.OptionalAuth(verifier), commentHandler.ListComments)

			protected := works.Group("")
			protected.Use(requireAuth)
			{
				protected.POST("/comments", commentHandler.AddComment)
				protected.PATCH("/comments/:commentId", commentHandler.EditComment)
				protected.DELETE("/comments/:commentId", commentHandler.DeleteComment)
				protected.POST("/comments/:commentId/vote", commentHandler.CastVote)
				protected.GET("/comments/:commentId/vote", commentHandler.GetVote)
				protected.GET("/comments/:commentId/vote/stream", commentHandler.StreamVote)
				protected.POST("/favorite", favoriteHandler.ToggleFavorite)
				protected.GET("/favorite", favoriteHandler.IsFavorite)
			}
		}

		me := api.Group("/me")
		me.Use(requireAuth)
		{
			me.POST("/profile", profileHandler.EnsureProfile)
			me.GET("/profile", profileHandler.GetProfile)
			me.GET("/profile/stream", profileHandler.StreamProfile)
			me.PUT("/nickname", profileHandler.SetNickname)
			me.GET("/favorites", favoriteHandler.ListFavorites)
		}
	}
}
