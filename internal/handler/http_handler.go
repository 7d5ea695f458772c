package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/plantpal/internal/media"
	"github.com/weiawesome/plantpal/internal/service"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
	"github.com/weiawesome/plantpal/pkg/middleware"
	"github.com/weiawesome/plantpal/pkg/response"
)

// Handler handles HTTP requests for the PlantPal API.
type Handler struct {
	graph          service.SocialGraphService
	feed           service.FeedService
	posts          service.PostService
	users          service.UserService
	authMiddleware *middleware.AuthMiddleware
	maxUpload      int64
}

// Services groups the services the handler serves.
type Services struct {
	Graph service.SocialGraphService
	Feed  service.FeedService
	Posts service.PostService
	Users service.UserService
}

// NewHandler creates a new HTTP handler. A nil authMiddleware trusts the
// user ids clients send; otherwise ids must match the token subject.
func NewHandler(svcs Services, authMiddleware *middleware.AuthMiddleware, maxUpload int64) *Handler {
	return &Handler{
		graph:          svcs.Graph,
		feed:           svcs.Feed,
		posts:          svcs.Posts,
		users:          svcs.Users,
		authMiddleware: authMiddleware,
		maxUpload:      maxUpload,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		posts := api.Group("/posts")
		{
			posts.POST("", h.requireAuth(), h.CreatePost)
			posts.GET("/search", h.SearchPosts)
			posts.GET("/:id", h.optionalAuth(), h.GetPost)
			posts.GET("/:id/image", h.GetImage)
			posts.GET("/:id/comments", h.ListComments)
			posts.POST("/:id/comment", h.requireAuth(), h.AddComment)
			posts.PUT("/:id/like", h.requireAuth(), h.LikePost)
			posts.DELETE("/:id/like", h.requireAuth(), h.UnlikePost)
			posts.DELETE("/:id", h.requireAuth(), h.DeletePost)
		}

		api.GET("/feed/:userId", h.requireAuth(), h.GetFeed)

		users := api.Group("/users")
		{
			users.POST("", h.requireAuth(), h.RegisterUser)
			users.POST("/follow", h.requireAuth(), h.Follow)
			users.POST("/unfollow", h.requireAuth(), h.Unfollow)
			users.GET("/:userId", h.optionalAuth(), h.GetProfile)
			users.GET("/:userId/following", h.ListFollowing)
			users.GET("/:userId/followers", h.ListFollowers)
		}
	}
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	if h.authMiddleware == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.authMiddleware.RequireAuth()
}

func (h *Handler) optionalAuth() gin.HandlerFunc {
	if h.authMiddleware == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.authMiddleware.OptionalAuth()
}

// actor resolves who is acting. With tokens the subject wins and a
// different claimed id is rejected; without tokens the claimed id is used.
// It writes the error response and returns false on rejection.
func (h *Handler) actor(c *gin.Context, claimed string) (string, bool) {
	if h.authMiddleware == nil {
		return claimed, true
	}
	subject := middleware.GetUserID(c)
	if claimed != "" && claimed != subject {
		response.Forbidden(c, "user id does not match the authenticated user")
		return "", false
	}
	return subject, true
}

// viewer is the caller identity for reads: the token subject when present,
// else the viewerId query parameter.
func viewer(c *gin.Context) string {
	if id := middleware.GetUserID(c); id != "" {
		return id
	}
	return c.Query("viewerId")
}

// fail maps a service error to its HTTP response.
func fail(c *gin.Context, err error, msg string) {
	l := pkglog.Ctx(c.Request.Context())

	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, media.ErrImageTooLarge), errors.As(err, &maxBytes):
		response.PayloadTooLarge(c, "image is too large")
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidOperation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		l.Warn().Err(err).Msg(msg)
		response.ServiceUnavailable(c, "storage is temporarily unavailable, retry later")
	default:
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, msg)
	}
}

// bindOptionalJSON binds the body when there is one. A chunked request
// with an empty body counts as no body.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
