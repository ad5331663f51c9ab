package clientstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sociallink/internal/models"
)

// API is the subset of server routes the client state layer drives.
type API interface {
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error)
	GetPost(ctx context.Context, postID uint) (*models.Post, error)
	ListPostComments(ctx context.Context, postID uint) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID uint, content string, masterCommentID *uint) (*models.Comment, error)
	ToggleLike(ctx context.Context, target models.LikeTarget) (*models.ToggleLikeResult, error)
	SendFriendRequest(ctx context.Context, userID uint) (*models.Connection, error)
	RespondToFriendRequest(ctx context.Context, connectionID uint, accept bool) (*models.Connection, error)
}

// APIError is a non-2xx response decoded from either the result envelope
// or the error body.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsRetryable reports whether err is a conflict the server marked safe to
// send again.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

// APIClient talks JSON to the server and authenticates with the session token.
type APIClient struct {
	baseURL string
	http    *http.Client
	session *Session
}

// NewAPIClient targets baseURL, e.g. http://localhost:8375/api.
func NewAPIClient(baseURL string, session *Session) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body struct {
		Message   string `json:"message"`
		Error     string `json:"error"`
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Code: body.Code, Message: msg, Retryable: body.Retryable}
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login signs in and stores the user and token in the session.
func (c *APIClient) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	var res authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &res)
	if err != nil {
		return nil, "", err
	}
	if c.session != nil {
		if err := c.session.SignIn(res.User, res.Token); err != nil {
			return nil, "", err
		}
	}
	return res.User, res.Token, nil
}

// Logout revokes the token server side, then clears the session. The
// session is cleared even when the server call fails.
func (c *APIClient) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if c.session != nil {
		if serr := c.session.SignOut(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

func (c *APIClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *APIClient) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var posts []*models.Post
	if err := c.do(ctx, http.MethodGet, "/posts?"+q.Encode(), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *APIClient) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *APIClient) ListPostComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%d/comments", postID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment returns the new comment, or for a reply the master comment
// with all of its replies.
func (c *APIClient) CreateComment(ctx context.Context, postID uint, content string, masterCommentID *uint) (*models.Comment, error) {
	body := map[string]any{"comment": content}
	if masterCommentID != nil {
		body["master_comment_id"] = *masterCommentID
	}
	var res struct {
		Comment *models.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), body, &res); err != nil {
		return nil, err
	}
	return res.Comment, nil
}

func (c *APIClient) ToggleLike(ctx context.Context, target models.LikeTarget) (*models.ToggleLikeResult, error) {
	body := map[string]uint{}
	switch target.Kind {
	case models.LikeKindPost:
		body["user_post_id"] = target.ID
	case models.LikeKindComment:
		body["user_comment_id"] = target.ID
	default:
		return nil, fmt.Errorf("unknown like target %q", target.Kind)
	}
	var res models.ToggleLikeResult
	if err := c.do(ctx, http.MethodPost, "/likes/toggle", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) SendFriendRequest(ctx context.Context, userID uint) (*models.Connection, error) {
	var res struct {
		Connection *models.Connection `json:"connection"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/connections/requests/%d", userID), nil, &res); err != nil {
		return nil, err
	}
	return res.Connection, nil
}

func (c *APIClient) RespondToFriendRequest(ctx context.Context, connectionID uint, accept bool) (*models.Connection, error) {
	var res struct {
		Connection *models.Connection `json:"connection"`
	}
	path := fmt.Sprintf("/connections/requests/%d/respond", connectionID)
	if err := c.do(ctx, http.MethodPost, path, map[string]bool{"accept": accept}, &res); err != nil {
		return nil, err
	}
	return res.Connection, nil
}
