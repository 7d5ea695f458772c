package handler

import (
	"encoding/base64"
	"strconv"

	"github.com/gin-gonic/gin"

	pkglog "github.com/weiawesome/plantpal/pkg/log"
	"github.com/weiawesome/plantpal/pkg/response"
)

// GetFeed handles GET /api/v1/feed/:userId?cursor=&pageSize=&embedImages=.
func (h *Handler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	viewerID, ok := h.actor(c, c.Param("userId"))
	if !ok {
		return
	}

	pageSize, err := intQuery(c, "pageSize")
	if err != nil {
		response.BadRequest(c, "pageSize must be an integer")
		return
	}
	embed := false
	if raw := c.Query("embedImages"); raw != "" {
		if embed, err = strconv.ParseBool(raw); err != nil {
			response.BadRequest(c, "embedImages must be a boolean")
			return
		}
	}

	page, err := h.feed.GetFeed(ctx, viewerID, pageSize, c.Query("cursor"))
	if err != nil {
		fail(c, err, "failed to get feed")
		return
	}

	posts := make([]*postResponse, 0, len(page.Posts))
	for _, v := range page.Posts {
		resp := toPostResponse(v)
		if embed && v.HasImage() {
			data, err := h.posts.LoadImage(ctx, &v.Post)
			if err != nil {
				l := pkglog.Ctx(ctx)
				l.Warn().Err(err).Str(pkglog.FieldPostID, v.ID).Msg("failed to embed post image")
			} else {
				resp.ImageData = base64.StdEncoding.EncodeToString(data)
			}
		}
		posts = append(posts, resp)
	}

	response.Success(c, gin.H{"posts": posts, "nextCursor": page.NextCursor})
}
