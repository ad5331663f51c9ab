package server

import (
	"sociallink/internal/models"
	"sociallink/internal/service"

	"github.com/gofiber/fiber/v2"
)

type likeRequest struct {
	PostID    *uint `json:"user_post_id" form:"user_post_id" query:"user_post_id"`
	CommentID *uint `json:"user_comment_id" form:"user_comment_id" query:"user_comment_id"`
}

// ToggleLike handles POST /api/likes/toggle
// @Summary Like or unlike a post or comment
// @Description Exactly one of user_post_id or user_comment_id. A 409 with retryable=true means a concurrent toggle won; send the request again.
// @Tags likes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body likeRequest true "Target"
// @Success 200 {object} object{status=bool,message=string,liked_item=models.LikedItem,liked=bool}
// @Failure 400 {object} object{status=bool,message=string}
// @Failure 404 {object} object{status=bool,message=string}
// @Failure 409 {object} object{status=bool,message=string,retryable=bool}
// @Router /likes/toggle [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req likeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	target, err := models.ParseLikeTarget(req.PostID, req.CommentID)
	if err != nil {
		return models.RespondFailure(c, err)
	}

	res, err := s.likeService.ToggleLike(c.UserContext(), currentUser(c), target)
	if err != nil {
		return models.RespondFailure(c, err)
	}

	msg := service.MsgLikeRemoved
	if res.Liked {
		msg = service.MsgLiked
	}
	r := models.OK(msg, "liked_item", res.LikedItem).Map()
	r["liked"] = res.Liked
	return c.JSON(r)
}

// ListLikers handles GET /api/likes?user_post_id=|user_comment_id=
// @Summary Users who liked a post or comment
// @Tags likes
// @Produce json
// @Param user_post_id query int false "Post ID"
// @Param user_comment_id query int false "Comment ID"
// @Success 200 {array} models.User
// @Router /likes [get]
func (s *Server) ListLikers(c *fiber.Ctx) error {
	var req likeRequest
	if err := c.QueryParser(&req); err != nil {
		return models.RespondFailure(c, models.NewValidationError("Invalid query"))
	}
	target, err := models.ParseLikeTarget(req.PostID, req.CommentID)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	users, err := s.likeService.ListLikers(c.UserContext(), target)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(users))
}
