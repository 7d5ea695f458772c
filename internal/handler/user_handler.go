package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/pkg/middleware"
	"github.com/weiawesome/plantpal/pkg/response"
)

// RegisterUser handles POST /api/v1/users.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req domain.RegisterUserRequest
	if h.authMiddleware != nil {
		// The token names the user; the body may only add an email.
		var body struct {
			ID    string `json:"id"`
			Email string `json:"email" binding:"omitempty,email,max=255"`
		}
		if err := bindOptionalJSON(c, &body); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
		req.ID, req.Email = body.ID, body.Email
		if req.Email == "" {
			req.Email = middleware.GetEmail(c)
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	userID, ok := h.actor(c, req.ID)
	if !ok {
		return
	}

	user, err := h.users.RegisterUser(c.Request.Context(), userID, req.Email)
	if err != nil {
		fail(c, err, "failed to register user")
		return
	}
	response.Created(c, user)
}

// GetProfile handles GET /api/v1/users/:userId.
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), c.Param("userId"), viewer(c))
	if err != nil {
		fail(c, err, "failed to get profile")
		return
	}
	response.Success(c, profile)
}

// ListFollowing handles GET /api/v1/users/:userId/following.
func (h *Handler) ListFollowing(c *gin.Context) {
	userID := c.Param("userId")
	ids, err := h.graph.ListFollowing(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, "failed to list following")
		return
	}
	response.Success(c, domain.UserListResponse{UserID: userID, Users: ids, Count: len(ids)})
}

// ListFollowers handles GET /api/v1/users/:userId/followers.
func (h *Handler) ListFollowers(c *gin.Context) {
	userID := c.Param("userId")
	ids, err := h.graph.ListFollowers(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, "failed to list followers")
		return
	}
	response.Success(c, domain.UserListResponse{UserID: userID, Users: ids, Count: len(ids)})
}

// Follow handles POST /api/v1/users/follow.
func (h *Handler) Follow(c *gin.Context) {
	h.changeFollow(c, true)
}

// Unfollow handles POST /api/v1/users/unfollow.
func (h *Handler) Unfollow(c *gin.Context) {
	h.changeFollow(c, false)
}

func (h *Handler) changeFollow(c *gin.Context, follow bool) {
	ctx := c.Request.Context()

	var req domain.FollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "followingId is required")
		return
	}

	followerID, ok := h.actor(c, req.FollowerID)
	if !ok {
		return
	}

	var err error
	if follow {
		err = h.graph.Follow(ctx, followerID, req.FollowingID)
	} else {
		err = h.graph.Unfollow(ctx, followerID, req.FollowingID)
	}
	if err != nil {
		fail(c, err, "failed to update follow")
		return
	}

	response.Success(c, gin.H{
		"followerId":  followerID,
		"followingId": req.FollowingID,
		"following":   follow,
	})
}
