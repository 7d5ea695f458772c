package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/plantpal/internal/domain"
	"github.com/weiawesome/plantpal/pkg/middleware"
	"github.com/weiawesome/plantpal/pkg/response"
)

// multipartOverhead is allowed on top of the image limit for form fields.
const multipartOverhead = 1 << 20

// postResponse is a post as sent to clients: the stored image becomes a
// URL and, when asked for, inline base64 data.
type postResponse struct {
	*domain.PostView
	ImageURL  string `json:"imageUrl,omitempty"`
	ImageData string `json:"imageData,omitempty"`
}

func imageURL(p *domain.Post) string {
	if !p.HasImage() {
		return ""
	}
	return fmt.Sprintf("/api/v1/posts/%s/image", p.ID)
}

func toPostResponse(v *domain.PostView) *postResponse {
	return &postResponse{PostView: v, ImageURL: imageURL(&v.Post)}
}

func plainView(p *domain.Post) *domain.PostView {
	return &domain.PostView{Post: *p, Comments: []domain.Comment{}}
}

// CreatePost handles POST /api/v1/posts (multipart: title, caption, userId, image).
func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)

	authorID, ok := h.actor(c, c.PostForm("userId"))
	if !ok {
		return
	}

	in := &domain.CreatePostInput{
		AuthorID:    authorID,
		AuthorEmail: middleware.GetEmail(c),
		Title:       c.PostForm("title"),
		Caption:     c.PostForm("caption"),
	}

	file, header, err := c.Request.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > h.maxUpload {
			response.PayloadTooLarge(c, "image is too large")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
		if err != nil {
			fail(c, err, "failed to read image")
			return
		}
		if int64(len(data)) > h.maxUpload {
			response.PayloadTooLarge(c, "image is too large")
			return
		}
		in.Image = &domain.ImageUpload{
			Data:        data,
			ContentType: header.Header.Get("Content-Type"),
			Filename:    header.Filename,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		fail(c, err, "failed to read upload")
		return
	}

	post, err := h.posts.CreatePost(ctx, in)
	if err != nil {
		fail(c, err, "failed to create post")
		return
	}

	response.Created(c, toPostResponse(plainView(post)))
}

// GetPost handles GET /api/v1/posts/:id.
func (h *Handler) GetPost(c *gin.Context) {
	view, err := h.posts.GetPost(c.Request.Context(), c.Param("id"), viewer(c))
	if err != nil {
		fail(c, err, "failed to get post")
		return
	}
	response.Success(c, toPostResponse(view))
}

// GetImage handles GET /api/v1/posts/:id/image and streams the stored bytes.
func (h *Handler) GetImage(c *gin.Context) {
	obj, err := h.posts.OpenImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to open image")
		return
	}
	defer obj.Body.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, nil)
}

// ListComments handles GET /api/v1/posts/:id/comments.
func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.posts.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "failed to list comments")
		return
	}
	response.Success(c, gin.H{"comments": comments})
}

// AddComment handles POST /api/v1/posts/:id/comment.
func (h *Handler) AddComment(c *gin.Context) {
	var req domain.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	authorID, ok := h.actor(c, req.Author)
	if !ok {
		return
	}

	view, err := h.feed.AddComment(c.Request.Context(), c.Param("id"), authorID, req.Text)
	if err != nil {
		fail(c, err, "failed to add comment")
		return
	}
	response.Created(c, toPostResponse(view))
}

// LikePost handles PUT /api/v1/posts/:id/like.
func (h *Handler) LikePost(c *gin.Context) {
	h.changeLike(c, true)
}

// UnlikePost handles DELETE /api/v1/posts/:id/like.
func (h *Handler) UnlikePost(c *gin.Context) {
	h.changeLike(c, false)
}

func (h *Handler) changeLike(c *gin.Context, like bool) {
	ctx := c.Request.Context()

	var req domain.LikeRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	userID, ok := h.actor(c, req.UserID)
	if !ok {
		return
	}

	var (
		view *domain.PostView
		err  error
	)
	if like {
		view, err = h.feed.LikePost(ctx, c.Param("id"), userID)
	} else {
		view, err = h.feed.UnlikePost(ctx, c.Param("id"), userID)
	}
	if err != nil {
		fail(c, err, "failed to update like")
		return
	}
	response.Success(c, toPostResponse(view))
}

// DeletePost handles DELETE /api/v1/posts/:id. The requester comes from
// the body, the userId query parameter or the token.
func (h *Handler) DeletePost(c *gin.Context) {
	var req domain.DeletePostRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = c.Query("userId")
	}

	requesterID, ok := h.actor(c, req.UserID)
	if !ok {
		return
	}

	postID := c.Param("id")
	if err := h.feed.DeletePost(c.Request.Context(), postID, requesterID); err != nil {
		fail(c, err, "failed to delete post")
		return
	}
	response.Success(c, gin.H{"id": postID, "deleted": true})
}

// SearchPosts handles GET /api/v1/posts/search?q=&page=&pageSize=.
func (h *Handler) SearchPosts(c *gin.Context) {
	page, err := intQuery(c, "page")
	if err != nil {
		response.BadRequest(c, "page must be an integer")
		return
	}
	pageSize, err := intQuery(c, "pageSize")
	if err != nil {
		response.BadRequest(c, "pageSize must be an integer")
		return
	}

	result, err := h.posts.SearchPosts(c.Request.Context(), c.Query("q"), page, pageSize)
	if err != nil {
		fail(c, err, "failed to search posts")
		return
	}

	posts := make([]*postResponse, 0, len(result.Posts))
	for _, p := range result.Posts {
		posts = append(posts, toPostResponse(plainView(p)))
	}
	response.Success(c, gin.H{
		"posts":    posts,
		"total":    result.Total,
		"page":     result.Page,
		"pageSize": result.PageSize,
	})
}

// intQuery parses an optional integer query parameter; absent means 0.
func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
