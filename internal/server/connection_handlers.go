package server

import (
	"sociallink/internal/models"
	"sociallink/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/connections/requests/:userId
// @Summary Send a friend request
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Receiver ID"
// @Success 201 {object} object{status=bool,message=string,connection=models.Connection}
// @Failure 400 {object} object{status=bool,message=string}
// @Failure 409 {object} object{status=bool,message=string}
// @Router /connections/requests/{userId} [post]
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	receiverID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	conn, err := s.connectionService.SendRequest(c.UserContext(), currentUser(c), receiverID)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusCreated, models.OK(service.MsgFriendRequestSent, "connection", conn))
}

// RespondToFriendRequest handles POST /api/connections/requests/:connectionId/respond
// @Summary Accept or reject a pending request
// @Tags connections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param connectionId path int true "Connection ID"
// @Param request body object{accept=bool} true "Decision"
// @Success 200 {object} object{status=bool,message=string,connection=models.Connection}
// @Failure 403 {object} object{status=bool,message=string}
// @Router /connections/requests/{connectionId}/respond [post]
func (s *Server) RespondToFriendRequest(c *fiber.Ctx) error {
	connectionID, err := s.parseID(c, "connectionId")
	if err != nil {
		return nil
	}
	var req struct {
		Accept *bool `json:"accept" form:"accept"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Accept == nil {
		return models.RespondFailure(c, models.NewValidationError("accept is required"))
	}

	conn, err := s.connectionService.RespondToRequest(c.UserContext(), currentUser(c), connectionID, *req.Accept)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	msg := service.MsgFriendRequestRejected
	if *req.Accept {
		msg = service.MsgFriendRequestAccepted
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK(msg, "connection", conn))
}

// Unfriend handles DELETE /api/connections/:userId
// @Summary Remove a connection in either direction
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Other user ID"
// @Success 200 {object} object{status=bool,message=string}
// @Failure 404 {object} object{status=bool,message=string}
// @Router /connections/{userId} [delete]
func (s *Server) Unfriend(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.connectionService.Unfriend(c.UserContext(), currentUser(c), otherID); err != nil {
		return models.RespondFailure(c, err)
	}
	return models.RespondResult(c, fiber.StatusOK, models.OK(service.MsgUnfriended, "", nil))
}

// ListFriendRequests handles GET /api/connections/requests
// @Summary Pending requests received
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Connection
// @Router /connections/requests [get]
func (s *Server) ListFriendRequests(c *fiber.Ctx) error {
	requests, err := s.connectionService.ListFriendRequests(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(requests))
}

// ListSentRequests handles GET /api/connections/requests/sent
// @Summary Pending requests sent
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Connection
// @Router /connections/requests/sent [get]
func (s *Server) ListSentRequests(c *fiber.Ctx) error {
	requests, err := s.connectionService.ListSentRequests(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(requests))
}

// ListActiveConnections handles GET /api/connections
// @Summary Active connections
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /connections [get]
func (s *Server) ListActiveConnections(c *fiber.Ctx) error {
	users, err := s.connectionService.ListActiveConnections(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(users))
}

// ListAllConnections handles GET /api/connections/all
// @Summary Every connection row involving the caller
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Connection
// @Router /connections/all [get]
func (s *Server) ListAllConnections(c *fiber.Ctx) error {
	conns, err := s.connectionService.ListAllConnections(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(conns))
}

// SuggestFriends handles GET /api/connections/suggestions
// @Summary Up to 10 random users not yet connected
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /connections/suggestions [get]
func (s *Server) SuggestFriends(c *fiber.Ctx) error {
	users, err := s.connectionService.SuggestFriends(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(nonNil(users))
}

// GetConnectionStatus handles GET /api/connections/status/:userId
// @Summary Connection status with another user
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Other user ID"
// @Success 200 {object} service.ConnectionStatusResult
// @Failure 400 {object} object{status=bool,message=string}
// @Router /connections/status/{userId} [get]
func (s *Server) GetConnectionStatus(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	status, err := s.connectionService.ConnectionStatus(c.UserContext(), currentUser(c), otherID)
	if err != nil {
		return models.RespondFailure(c, err)
	}
	return c.JSON(status)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
