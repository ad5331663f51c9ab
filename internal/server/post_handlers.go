package server

import (
	"sociallink/internal/middleware"
	"sociallink/internal/models"
	"sociallink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts (multipart)
// @Summary Create a post
// @Description Description plus one or more images, stored in upload order
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param description formData string true "Description"
// @Param images formData file true "Images (repeat the field for several)"
// @Success 201 {object} object{status=bool,message=string,post=models.Post}
// @Failure 400 {object} object{status=bool,message=string}
// @Failure 503 {object} object{status=bool,message=string}
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	uploads, _, err := formUploads(c, "images")
	if err != nil {
		return models.RespondFailure(c, err)
	}
	description := c.FormValue("description")

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:      currentUser(c),
		Description: description,
		Images:      uploads,
	})
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusCreated, models.OK(service.MsgPostCreated, "post", post))
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Description Multipart or JSON. Sending images replaces the whole image list.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param description formData string false "Description"
// @Param images formData file false "Replacement images"
// @Success 200 {object} object{status=bool,message=string,post=models.Post}
// @Failure 403 {object} object{status=bool,message=string}
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	in := service.UpdatePostInput{UserID: currentUser(c), PostID: postID}

	if isMultipart(c) {
		uploads, sent, err := formUploads(c, "images")
		if err != nil {
			return models.RespondFailure(c, err)
		}
		if sent {
			in.Images = nonNil(uploads)
		}
		in.Description = formValue(c, "description")
	} else {
		var req struct {
			Description *string `json:"description"`
		}
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		in.Description = req.Description
	}

	post, err := s.postService.UpdatePost(c.UserContext(), in)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK(service.MsgPostUpdated, "post", post))
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post with its comments, likes and images
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{status=bool,message=string}
// @Failure 403 {object} object{status=bool,message=string}
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUser(c), postID); err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK(service.MsgPostDeleted, "", nil))
}

// GetPosts handles GET /api/posts
// @Summary Global feed, newest first
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (default 10)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)
	viewerID, _ := middleware.UserID(c)

	posts, err := s.postService.ListPosts(c.UserContext(), viewerID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(posts))
}

// GetPost handles GET /api/posts/:id.
// @Summary Single post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} object{status=bool,message=string}
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	// anonymous reads are served from the post cache by the repository
	viewerID, _ := middleware.UserID(c)
	post, err := s.postService.GetPost(c.UserContext(), viewerID, postID)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary One user's posts, newest first
// @Tags posts
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size (default 10)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)
	viewerID, _ := middleware.UserID(c)

	posts, err := s.postService.ListUserPosts(c.UserContext(), viewerID, userID, page.Limit, page.Offset)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(posts))
}
