package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Likes         LikeStore
	Comments      CommentStore
	History       WatchHistoryStore
	Media         MediaBinder
	Orphans       OrphanCollector
	Feed          FeedCache
	HomeFeedSize  int

	Verifier    TokenVerifier
	AuthLimiter RateLimiter
	NowFunc     func() time.Time
}

// NewRouter wires every endpoint into a chi router. Identity-scoped groups
// sit behind the access gate; public listings get an optional gate so signed
// in callers see their own unpublished videos.
func NewRouter(deps Dependencies) http.Handler {
	gate := AccessGate{Verifier: deps.Verifier, Users: deps.Users}

	authH := AuthHandler{
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Media:    deps.Media,
		Orphans:  deps.Orphans,
		Limiter:  deps.AuthLimiter,
		NowFunc:  deps.NowFunc,
	}
	userH := UserHandler{
		Users:         deps.Users,
		Subscriptions: deps.Subscriptions,
		History:       deps.History,
		Media:         deps.Media,
		NowFunc:       deps.NowFunc,
	}
	videoH := VideoHandler{
		Videos:       deps.Videos,
		Media:        deps.Media,
		Orphans:      deps.Orphans,
		History:      deps.History,
		Feed:         deps.Feed,
		HomeFeedSize: deps.HomeFeedSize,
		NowFunc:      deps.NowFunc,
	}
	socialH := SocialHandler{
		Users:         deps.Users,
		Subscriptions: deps.Subscriptions,
		Likes:         deps.Likes,
		Videos:        deps.Videos,
		Comments:      deps.Comments,
	}
	commentH := CommentHandler{
		Comments: deps.Comments,
		Videos:   deps.Videos,
		NowFunc:  deps.NowFunc,
	}

	r := chi.NewRouter()

	r.Get("/healthz", HealthHandler{}.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/login", authH.Login)
			r.Post("/refresh", authH.Refresh)
			r.With(gate.Require).Post("/logout", authH.Logout)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(gate.Require)
			r.Get("/", userH.CurrentUser)
			r.Patch("/", userH.UpdateAccount)
			r.Post("/password", userH.ChangePassword)
			r.Patch("/avatar", userH.UpdateAvatar)
			r.Patch("/cover", userH.UpdateCoverImage)
			r.Get("/history", userH.WatchHistory)
		})

		r.Route("/channels", func(r chi.Router) {
			r.With(gate.Optional).Get("/{userName}", userH.ChannelProfile)
			r.With(gate.Optional).Get("/{channelID}/videos", videoH.ListByChannel)
			r.Get("/{channelID}/subscribers", socialH.ListSubscribers)
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/home", videoH.Home)
			r.Get("/trending", videoH.Trending)
			r.With(gate.Optional).Get("/", videoH.List)
			r.With(gate.Optional).Get("/search", videoH.Search)
			r.With(gate.Require).Post("/", videoH.Publish)

			r.Route("/{videoID}", func(r chi.Router) {
				r.With(gate.Optional).Get("/", videoH.Get)
				r.With(gate.Require).Patch("/", videoH.Update)
				r.With(gate.Require).Delete("/", videoH.Remove)
				r.With(gate.Require).Patch("/publish", videoH.TogglePublish)
				r.Post("/views", videoH.IncrementView)
				r.Delete("/views", videoH.DecrementView)
				r.Get("/owner", videoH.Owner)

				r.Get("/comments", commentH.List)
				r.With(gate.Require).Post("/comments", commentH.Add)
			})
		})

		r.Route("/comments/{commentID}", func(r chi.Router) {
			r.Use(gate.Require)
			r.Patch("/", commentH.Update)
			r.Delete("/", commentH.Delete)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(gate.Require)
			r.Get("/", socialH.ListSubscriptions)
			r.Post("/{channelID}", socialH.ToggleSubscription)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(gate.Require)
			r.Get("/videos", socialH.LikedVideos)
			r.Post("/{kind}/{targetID}", socialH.ToggleLike)
			r.Get("/{kind}/{targetID}", socialH.LikeState)
		})
	})

	return r
}
