package server

import (
	"sociallink/internal/models"
	"sociallink/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Comment         string `json:"comment" form:"comment"`
	MasterCommentID *uint  `json:"master_comment_id" form:"master_comment_id"`
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post or reply to a top-level comment
// @Description A reply returns the master comment with every reply, oldest first
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} object{status=bool,message=string,comment=models.Comment}
// @Failure 400 {object} object{status=bool,message=string}
// @Failure 404 {object} object{status=bool,message=string}
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:          currentUser(c),
		PostID:          postID,
		Content:         req.Comment,
		MasterCommentID: req.MasterCommentID,
	})
	if err != nil {
		return models.RespondFailure(c, err)
	}

	msg := service.MsgCommentCreated
	if req.MasterCommentID != nil && *req.MasterCommentID != 0 {
		msg = service.MsgNestedCommentCreated
	}
	return models.RespondResult(c, fiber.StatusCreated, models.OK(msg, "comment", comment))
}

// GetPostComments handles GET /api/posts/:id/comments
// @Summary Comments of a post
// @Description Top-level comments newest first, each with replies oldest first
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} object{status=bool,message=string}
// @Router /posts/{id}/comments [get]
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListPostComments(c.UserContext(), postID)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(comments))
}
