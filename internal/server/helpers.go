package server

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"unicode"

	"sociallink/internal/middleware"
	"sociallink/internal/models"
	"sociallink/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPageSize    = 10
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 envelope and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondFailure(c, models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "connectionId" -> "connection ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// currentUser returns the id set by the auth middleware. Routes behind
// Required always have one.
func currentUser(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}

// parseBody decodes the JSON or form body into dst, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondFailure(c, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// readUpload loads one multipart file into memory.
func readUpload(fh *multipart.FileHeader) (storage.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return storage.Upload{}, models.NewValidationError("Invalid image file")
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return storage.Upload{}, models.NewValidationError("Invalid image file")
	}
	return storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// formUploads reads every file sent under field, in request order. The
// second result is false when the request is not multipart or the field
// is absent.
func formUploads(c *fiber.Ctx, field string) ([]storage.Upload, bool, error) {
	if !isMultipart(c) {
		return nil, false, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, false, models.NewValidationError("Invalid multipart form")
	}
	files, ok := form.File[field]
	if !ok {
		return nil, false, nil
	}
	uploads := make([]storage.Upload, 0, len(files))
	for _, fh := range files {
		up, err := readUpload(fh)
		if err != nil {
			return nil, true, err
		}
		uploads = append(uploads, up)
	}
	return uploads, true, nil
}

// formUpload reads the single file sent under field, or nil when absent.
func formUpload(c *fiber.Ctx, field string) (*storage.Upload, error) {
	uploads, ok, err := formUploads(c, field)
	if err != nil || !ok || len(uploads) == 0 {
		return nil, err
	}
	return &uploads[0], nil
}

// formValue returns the multipart field, or nil when it was not sent.
func formValue(c *fiber.Ctx, field string) *string {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	vals, ok := form.Value[field]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}
